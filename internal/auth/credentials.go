package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const minPasswordLength = 6

// Credentials are an email/password pair.
type Credentials struct {
	Email    string
	Password string
}

// Validate applies the local checks that run before any provider call.
func (c Credentials) Validate() error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("auth: email address is malformed")
	}
	if utf8.RuneCountInString(c.Password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// PasswordAuthenticator checks credentials with an identity provider.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, c Credentials) (Identity, Token, error)
}

// PasswordProvider signs in with fixed credentials, validating them first
// so malformed input never reaches the authenticator.
type PasswordProvider struct {
	creds Credentials
	authn PasswordAuthenticator
}

func NewPasswordProvider(c Credentials, authn PasswordAuthenticator) (*PasswordProvider, error) {
	if authn == nil {
		return nil, errors.New("auth: authenticator must not be nil")
	}
	return &PasswordProvider{creds: c, authn: authn}, nil
}

func (p *PasswordProvider) SignIn(ctx context.Context) (Identity, Token, error) {
	if err := p.creds.Validate(); err != nil {
		return Identity{}, Token{}, err
	}
	c := p.creds
	c.Email = strings.TrimSpace(c.Email)
	return p.authn.Authenticate(ctx, c)
}
