package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const issuer = "civitas"

type Claims struct {
	Email string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// GenerateToken signs a gateway token whose email claim names the account
// the bearer acts as.
func GenerateToken(email string, secret string, expiry time.Duration) (string, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	email, err := domain.NormalizeEmail(tc.Email)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: email claim: %w", err)
	}
	return &Claims{Email: email}, nil
}
