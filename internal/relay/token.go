package relay

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("update token required")
)

// TokenManager issues and validates the update tokens that prove share
// ownership. A token is scoped to a single share ID; presenting it for
// any other share fails validation.
type TokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims carries the share a token was minted for.
type Claims struct {
	ShareID string `json:"share_id"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a token manager. An empty secret gets
// replaced with a random one, which invalidates all outstanding tokens
// whenever the process restarts.
func NewTokenManager(secretKey string, tokenDuration time.Duration) *TokenManager {
	if secretKey == "" {
		buf := make([]byte, 32)
		rand.Read(buf)
		secretKey = hex.EncodeToString(buf)
	}
	return &TokenManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a new update token for the given share. The token ID
// makes every token distinct even when several are minted within the
// same second, so rolled tokens never collide with the ones they replace.
func (m *TokenManager) Generate(shareID string) (string, error) {
	claims := &Claims{
		ShareID: shareID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses a token and checks it was minted for shareID.
func (m *TokenManager) Validate(tokenString, shareID string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ShareID != shareID {
		return nil, fmt.Errorf("%w: token is for a different share", ErrInvalidToken)
	}

	return claims, nil
}
