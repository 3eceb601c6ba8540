package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingMethod = "HS256"

// Claims are the verified contents of an ID token.
type Claims struct {
	UID           string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Identity returns the user the claims describe.
func (c Claims) Identity() Identity {
	return Identity{
		UID:           c.UID,
		Email:         c.Email,
		DisplayName:   c.Name,
		PhotoURL:      c.Picture,
		EmailVerified: c.EmailVerified,
	}
}

// idClaims is the JWT payload.
type idClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

func (c idClaims) claims() Claims {
	out := Claims{
		UID:           c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		Picture:       c.Picture,
		EmailVerified: c.EmailVerified,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// VerifierConfig configures token verification. Issuer and Audience are
// checked only when set.
type VerifierConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// Verifier checks HS256-signed ID tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: verifier secret must not be empty")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{secret: cfg.Secret, parser: jwt.NewParser(opts...)}, nil
}

// Verify returns the token's claims. Every failure wraps ErrInvalidToken.
func (v *Verifier) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	var parsed idClaims
	_, err := v.parser.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %s", ErrInvalidToken, describeJWTError(err))
	}
	if parsed.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return parsed.claims(), nil
}

func describeJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "audience mismatch"
	default:
		return err.Error()
	}
}

// IssuerConfig configures token minting.
type IssuerConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// Issuer mints HS256 ID tokens that a Verifier with the same secret,
// issuer and audience accepts.
type Issuer struct {
	cfg IssuerConfig
}

func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: issuer secret must not be empty")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

// Issue mints a token for id.
func (i *Issuer) Issue(id Identity) (Token, error) {
	if strings.TrimSpace(id.UID) == "" {
		return Token{}, errors.New("auth: uid is required")
	}
	now := i.cfg.Now()
	exp := now.Add(i.cfg.TTL)

	c := idClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:         id.Email,
		Name:          id.DisplayName,
		Picture:       id.PhotoURL,
		EmailVerified: id.EmailVerified,
	}
	if i.cfg.Audience != "" {
		c.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: jwt.NewNumericDate(exp).Time}, nil
}

// TokenProvider signs in with an ID token issued elsewhere. The claims are
// read without checking the signature: the backend verifies every request,
// so a forged token only fools the local display.
type TokenProvider struct {
	raw string
	now func() time.Time
}

func NewTokenProvider(raw string, now func() time.Time) *TokenProvider {
	if now == nil {
		now = time.Now
	}
	return &TokenProvider{raw: strings.TrimSpace(raw), now: now}
}

func (p *TokenProvider) SignIn(context.Context) (Identity, Token, error) {
	if p.raw == "" {
		return Identity{}, Token{}, fmt.Errorf("%w: no token supplied", ErrInvalidToken)
	}
	var parsed idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(p.raw, &parsed); err != nil {
		return Identity{}, Token{}, fmt.Errorf("%w: %s", ErrInvalidToken, describeJWTError(err))
	}
	c := parsed.claims()
	if c.UID == "" {
		return Identity{}, Token{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	tok := Token{Value: p.raw, ExpiresAt: c.ExpiresAt}
	if tok.Expired(p.now()) {
		return Identity{}, Token{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return c.Identity(), tok, nil
}
