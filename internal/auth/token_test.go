package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	token, expires, err := issuer.Generate("grower")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if until := time.Until(expires); until < 14*time.Minute || until > 16*time.Minute {
		t.Errorf("expires in %v, want about 15m", until)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "grower" || claims.Issuer != tokenIssuer || claims.ID == "" {
		t.Errorf("claims = %+v, want subject grower issuer %s and an id", claims, tokenIssuer)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	token, _, err := issuer.Generate("grower")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	expired := NewTokenIssuer(testSecret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"garbage", issuer, "not-a-jwt"},
		{"wrong secret", NewTokenIssuer("another-secret-another-secret-xx", time.Minute), token},
		{"expired", expired, token},
		{"alg none", issuer, "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJncm93ZXIiLCJpc3MiOiJncm93d2l6In0."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Parse(tt.token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestAuthenticator_Login(t *testing.T) {
	hash, err := HashPassword("s3cret-grow")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	auth := NewAuthenticator("grower", hash, NewTokenIssuer(testSecret, time.Hour))

	session, err := auth.Login("grower", "s3cret-grow")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.Username != "grower" || session.Token == "" {
		t.Errorf("Login() = %+v, want a token for grower", session)
	}
	if _, err := auth.Verify(session.Token); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	for _, tc := range [][2]string{{"grower", "nope"}, {"admin", "s3cret-grow"}} {
		if _, err := auth.Login(tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) error = %v, want ErrInvalidCredentials", tc[0], tc[1], err)
		}
	}
}
