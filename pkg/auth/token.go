package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongUse     = errors.New("token used for wrong purpose")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
	TokenUse    string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenManager issues and validates HMAC-signed JWTs.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a token manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair issues an access/refresh token pair for the identity.
func (tm *TokenManager) IssuePair(ident *Identity) (*TokenPair, error) {
	access, err := tm.issue(ident, tokenUseAccess, tm.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := tm.issue(ident, tokenUseRefresh, tm.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(tm.accessTTL.Seconds()),
	}, nil
}

func (tm *TokenManager) issue(ident *Identity, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      ident.UserID,
		Username:    ident.Username,
		IsSuperuser: ident.IsSuperuser,
		TokenUse:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", ident.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// ValidateAccess parses an access token and returns the identity it
// carries.
func (tm *TokenManager) ValidateAccess(token string) (*Identity, error) {
	return tm.validate(token, tokenUseAccess)
}

// ValidateRefresh parses a refresh token.
func (tm *TokenManager) ValidateRefresh(token string) (*Identity, error) {
	return tm.validate(token, tokenUseRefresh)
}

func (tm *TokenManager) validate(token, use string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use {
		return nil, ErrWrongUse
	}
	return &Identity{
		UserID:      claims.UserID,
		Username:    claims.Username,
		IsSuperuser: claims.IsSuperuser,
	}, nil
}
