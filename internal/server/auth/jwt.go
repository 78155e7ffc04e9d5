package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// Claims carries the profile basics and the session binding of an access
// token. The subject is the user id.
type Claims struct {
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	ID           string `json:"id"`
	XsrfToken    string `json:"xsrfToken"`
	RefreshToken string `json:"refreshToken"`
	jwt.RegisteredClaims
}

// SigningOptions describe how access tokens are signed and which registered
// claims are required on the way back in.
type SigningOptions struct {
	Secret    []byte
	Algorithm string
	Audience  string
	Issuer    string
	TTL       time.Duration
}

// signingMethod accepts the HMAC family only, the secret is symmetric.
func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case "", jwt.SigningMethodHS256.Alg():
		return jwt.SigningMethodHS256, nil
	case jwt.SigningMethodHS384.Alg():
		return jwt.SigningMethodHS384, nil
	case jwt.SigningMethodHS512.Alg():
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
}

// GenerateToken signs claims, filling in issuer, audience and timestamps.
func GenerateToken(claims Claims, opts SigningOptions, now time.Time) (string, error) {
	method, err := signingMethod(opts.Algorithm)
	if err != nil {
		return "", err
	}

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(opts.TTL))
	if opts.Issuer != "" {
		claims.Issuer = opts.Issuer
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}

	return jwt.NewWithClaims(method, claims).SignedString(opts.Secret)
}

// ParseToken verifies signature, algorithm, audience, issuer and expiry.
// Expired tokens yield common.ErrExpiredToken, anything else wraps
// common.ErrInvalidToken.
func ParseToken(tokenString string, opts SigningOptions) (*Claims, error) {
	method, err := signingMethod(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return opts.Secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
