package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/St1cky1/task-tracker/internal/entity"
)

const accessTokenTTL = 15 * time.Minute

var ErrInvalidToken = errors.New("invalid token")

// JWTManager validates access tokens issued by the identity service.
// GenerateAccessToken exists for tooling and tests.
type JWTManager struct {
	secretKey []byte
	now       func() time.Time
}

func NewJWTManager(secretKey string) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (m *JWTManager) GenerateAccessToken(userID int, email string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     now.Add(accessTokenTTL).Unix(),
		"iat":     now.Unix(),
		"type":    "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

func (m *JWTManager) ValidateAccessToken(tokenString string) (*entity.JWTClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return &entity.JWTClaims{
		UserID: int(userID),
		Email:  email,
	}, nil
}
