package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/reels-poster/internal/transfer"
)

const (
	tokenIssuer = "reels-poster"
	ScopeRun    = "run"
)

// GenerateToken signs an HS256 token allowed to trigger runs.
func GenerateToken(secretKey, subject string, tokenDuration time.Duration) (string, error) {
	if secretKey == "" {
		return "", errors.New("empty signing key")
	}
	now := time.Now()
	claims := transfer.JobClaims{
		Scope: ScopeRun,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func ValidateToken(secretKey, tokenString string) (*transfer.JobClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.JobClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())

	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if claims, ok := token.Claims.(*transfer.JobClaims); ok && token.Valid {
		if claims.Scope != ScopeRun {
			return nil, errors.New("token scope does not allow runs")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
