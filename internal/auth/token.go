package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/types"
)

// TokenType discriminates an access token from a refresh token within the
// same claim shape (spec §4.2 Token issuance).
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the JWT claim set both token kinds share, grounded on
// rexlx-squall/cmd/server/jwt.go's UserClaims embedding
// jwt.RegisteredClaims.
type Claims struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	TokenType   TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access/refresh JWTs from a single
// symmetric secret (spec §9: "resolve once at startup into an immutable
// AuthConfig value").
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer builds a TokenIssuer. secret must be non-empty.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (ti *TokenIssuer) sign(sub types.AccountId, email, displayName string, tt TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:       email,
		DisplayName: displayName,
		TokenType:   tt,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssuePair mints a fresh {access, refresh} token pair from the same claim
// set (spec §4.2).
func (ti *TokenIssuer) IssuePair(sub types.AccountId, email, displayName string) (access, refresh string, err error) {
	access, err = ti.sign(sub, email, displayName, TokenAccess, ti.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = ti.sign(sub, email, displayName, TokenRefresh, ti.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify decodes and validates raw as a JWT of the expected type, following
// the signing-method type-assertion callback idiom from
// rexlx-squall/cmd/server/jwt.go's ValidateJWT.
func (ti *TokenIssuer) Verify(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.TokenExpired, "token has expired")
		}
		return nil, apperr.Wrap(apperr.InvalidToken, "token is invalid", err)
	}
	if !token.Valid {
		return nil, apperr.New(apperr.InvalidToken, "token is invalid")
	}
	if claims.TokenType != want {
		return nil, apperr.New(apperr.InvalidToken, fmt.Sprintf("expected %s token, got %s", want, claims.TokenType))
	}
	return claims, nil
}

// AccountIDOf extracts the subject of validated claims as an AccountId.
func (c *Claims) AccountIDOf() (types.AccountId, error) {
	return types.ParseAccountId(c.Subject)
}
