// Package auth verifies identity tokens and issues development tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Verifier turns an identity token into an account ID
type Verifier interface {
	Verify(token string) (string, error)
}

// JWT signs and verifies HS256 tokens carrying the account ID
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT creates a JWT verifier and issuer
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue generates a token for an account
func (j *JWT) Issue(accountID string) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id": accountID,
		"sub":     accountID,
		"exp":     now.Add(j.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify validates a token and returns the account ID
func (j *JWT) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	if id, ok := claims["sub"].(string); ok && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: account id not found in token", ErrInvalidToken)
}
