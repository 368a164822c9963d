// Package auth protects the control API with a single operator account.
//
// The operator's password is stored only as an Argon2id hash in PHC
// format (produced by `growwiz hash-password`). A successful login yields
// a short-lived HS256 JWT that the API accepts as a Bearer token on
// mutating routes.
package auth
