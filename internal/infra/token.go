// README: Bearer-token identity decoding (JWT claims, optionally signature-verified).
package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"prestige/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenDecoder turns a raw bearer token into the caller's identity.
type TokenDecoder interface {
	Decode(ctx context.Context, raw string) (types.Identity, error)
}

// JWTDecoder reads identity claims from backend-issued JWTs. Without a
// secret the signature is not checked; the backend still verifies the
// token on every forwarded call.
type JWTDecoder struct {
	secret []byte
	now    func() time.Time
}

func NewJWTDecoder(secret string) *JWTDecoder {
	d := &JWTDecoder{now: time.Now}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

func (d *JWTDecoder) Verifying() bool {
	return d.secret != nil
}

func (d *JWTDecoder) Decode(_ context.Context, raw string) (types.Identity, error) {
	claims := jwt.MapClaims{}
	if d.secret != nil {
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return d.secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithTimeFunc(d.now))
		if err != nil {
			return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && d.now().After(exp.Time) {
			return types.Identity{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
	}

	id := claimString(claims, "id", "userId", "sub")
	if id == "" {
		return types.Identity{}, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}
	return types.Identity{
		ID:       types.ID(id),
		Username: claimString(claims, "utorid", "username"),
		Role:     claimString(claims, "role"),
		Token:    raw,
	}, nil
}

// claimString returns the first non-empty claim among keys. Numeric ids are
// rendered without a fractional part.
func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
