package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
)

// Authenticator issues and verifies HS256 bearer tokens carrying the caller's
// user id.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewAuthenticator(secret string, ttl time.Duration, clk Clock) *Authenticator {
	if clk == nil {
		clk = NewSystemClock()
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (a *Authenticator) GenerateToken(email, userID string) (string, error) {
	now := a.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":  email,
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(a.ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

// VerifyToken checks signature, algorithm and expiry and returns the user id.
func (a *Authenticator) VerifyToken(token string) (string, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now), jwt.WithExpirationRequired())
	if err != nil || !parsedToken.Valid {
		return "", ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrTokenInvalid
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", ErrTokenInvalid
	}
	return userID, nil
}
