package http

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	audienceAccess  = "portal:access"
	audienceRefresh = "portal:refresh"

	// DefaultAccessTTL is the dev portal's access token lifetime
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL is the dev portal's refresh token lifetime
	DefaultRefreshTTL = 24 * time.Hour
)

// accessClaims carry the session id so a refresh can be tied back to the
// session it extends.
type accessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// Tokenizer mints and verifies the dev portal's ES256 bearer tokens.
type Tokenizer struct {
	signKey    *ecdsa.PrivateKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenizer creates a tokenizer around a signing key.
func NewTokenizer(signKey *ecdsa.PrivateKey) *Tokenizer {
	return &Tokenizer{
		signKey:    signKey,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
}

// IssuePair mints an access and refresh token for one session.
func (t *Tokenizer) IssuePair(dssn, sessionID string) (access, refresh string, err error) {
	now := time.Now()

	accessToken := jwt.NewWithClaims(jwt.SigningMethodES256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   dssn,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
		SessionID: sessionID,
	})
	access, err = accessToken.SignedString(t.signKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodES256, refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   dssn,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audienceRefresh},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
		SessionID: sessionID,
	})
	refresh, err = refreshToken.SignedString(t.signKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return access, refresh, nil
}

// VerifyAccess parses an access token and returns its subject DSSN and
// session id.
func (t *Tokenizer) VerifyAccess(token string) (dssn, sessionID string, err error) {
	claims := &accessClaims{}
	if err := t.parse(token, claims, audienceAccess); err != nil {
		return "", "", err
	}
	return claims.Subject, claims.SessionID, nil
}

// VerifyRefresh parses a refresh token and returns its subject DSSN and
// session id.
func (t *Tokenizer) VerifyRefresh(token string) (dssn, sessionID string, err error) {
	claims := &refreshClaims{}
	if err := t.parse(token, claims, audienceRefresh); err != nil {
		return "", "", err
	}
	return claims.Subject, claims.SessionID, nil
}

func (t *Tokenizer) parse(token string, claims jwt.Claims, audience string) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &t.signKey.PublicKey, nil
	}, jwt.WithAudience(audience))
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
