package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
	"github.com/Nayan-Shrivastava/task-management-app/internal/store"
)

// TokenService issues and validates bearer tokens. Tokens are HS256 JWTs
// carrying the user id and a random jti; they carry no expiry and stay
// valid until removed from the user's token list.
type TokenService struct {
	secret []byte
	users  *store.UserStore
}

func NewTokenService(secret string, users *store.UserStore) *TokenService {
	return &TokenService{secret: []byte(secret), users: users}
}

// Sign produces a token string for the user without persisting it. The
// jti keeps tokens issued for the same user distinct, which is what makes
// revoking a single session possible.
func (t *TokenService) Sign(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"jti":     uuid.NewString(),
	})
	return token.SignedString(t.secret)
}

// Parse verifies the signature and extracts the user id. It does not
// consult the store.
func (t *TokenService) Parse(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, store.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, store.ErrInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, store.ErrInvalidToken
	}
	return int(userID), nil
}

// Issue signs a new token and appends it to the user's list before
// returning it.
func (t *TokenService) Issue(ctx context.Context, userID int) (string, error) {
	tokenString, err := t.Sign(userID)
	if err != nil {
		return "", err
	}
	if err := t.users.AppendToken(ctx, userID, tokenString); err != nil {
		return "", err
	}
	return tokenString, nil
}

// Validate resolves a presented token to its user. A token that parses
// but is no longer in the user's list has been revoked and fails the same
// way a forged one does.
func (t *TokenService) Validate(ctx context.Context, tokenString string) (*models.User, string, error) {
	userID, err := t.Parse(tokenString)
	if err != nil {
		return nil, "", err
	}
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", store.ErrInvalidToken
	}
	for _, issued := range user.Tokens {
		if issued == tokenString {
			return user, tokenString, nil
		}
	}
	return nil, "", store.ErrInvalidToken
}

// Revoke removes one token; other sessions stay valid.
func (t *TokenService) Revoke(ctx context.Context, userID int, tokenString string) error {
	return t.users.RemoveToken(ctx, userID, tokenString)
}

// RevokeAll logs the user out everywhere.
func (t *TokenService) RevokeAll(ctx context.Context, userID int) error {
	return t.users.ClearTokens(ctx, userID)
}
