package auth

import (
	"crypto/subtle"
	"fmt"
	"time"
)

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Authenticator checks the operator's credentials and issues tokens.
type Authenticator struct {
	username     string
	passwordHash string
	tokens       *TokenIssuer
}

// NewAuthenticator creates an authenticator for one operator account.
func NewAuthenticator(username, passwordHash string, tokens *TokenIssuer) *Authenticator {
	return &Authenticator{username: username, passwordHash: passwordHash, tokens: tokens}
}

// Login verifies username and password and returns a session token.
// Unknown usernames and wrong passwords return the same error.
func (a *Authenticator) Login(username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	passOK, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return nil, err
	}
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := a.tokens.Generate(a.username)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, Username: a.username}, nil
}

// Verify checks a bearer token and returns its claims.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return a.tokens.Parse(token)
}
