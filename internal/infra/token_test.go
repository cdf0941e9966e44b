package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTDecoder_Unverified(t *testing.T) {
	raw := sign(t, "backend-secret", jwt.MapClaims{"id": 42, "utorid": "smithj", "role": "cashier"})

	id, err := NewJWTDecoder("").Decode(context.Background(), raw)
	require.NoError(t, err)
	assert.EqualValues(t, "42", id.ID)
	assert.Equal(t, "smithj", id.Username)
	assert.Equal(t, "cashier", id.Role)
	assert.Equal(t, raw, id.Token)
}

func TestJWTDecoder_SubjectFallbacks(t *testing.T) {
	d := NewJWTDecoder("")
	id, err := d.Decode(context.Background(), sign(t, "x", jwt.MapClaims{"userId": "u-7"}))
	require.NoError(t, err)
	assert.EqualValues(t, "u-7", id.ID)
	assert.Equal(t, "regular", id.RoleOrDefault())

	id, err = d.Decode(context.Background(), sign(t, "x", jwt.MapClaims{"sub": "s-9", "username": "jo"}))
	require.NoError(t, err)
	assert.EqualValues(t, "s-9", id.ID)
	assert.Equal(t, "jo", id.Username)

	_, err = d.Decode(context.Background(), sign(t, "x", jwt.MapClaims{"role": "manager"}))
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTDecoder_Verified(t *testing.T) {
	d := NewJWTDecoder("s3cret")
	require.True(t, d.Verifying())

	_, err := d.Decode(context.Background(), sign(t, "s3cret", jwt.MapClaims{"id": 1}))
	require.NoError(t, err)

	_, err = d.Decode(context.Background(), sign(t, "other", jwt.MapClaims{"id": 1}))
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTDecoder_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	for _, secret := range []string{"", "s3cret"} {
		raw := sign(t, "s3cret", jwt.MapClaims{"id": 1, "exp": past})
		_, err := NewJWTDecoder(secret).Decode(context.Background(), raw)
		assert.True(t, errors.Is(err, ErrInvalidToken), "secret=%q", secret)
	}
}

func TestJWTDecoder_Garbage(t *testing.T) {
	_, err := NewJWTDecoder("").Decode(context.Background(), "not-a-jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
