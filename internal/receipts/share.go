package receipts

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidShareToken is returned for tokens that fail verification.
var ErrInvalidShareToken = errors.New("receipts: invalid share token")

const shareIssuer = "scheduled-pros"

// ShareClaims identify one receipt.
type ShareClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// ShareSigner issues and verifies HMAC-signed share tokens.
type ShareSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewShareSigner creates a signer. The secret must be non-empty.
func NewShareSigner(secret string, ttl time.Duration) (*ShareSigner, error) {
	if secret == "" {
		return nil, errors.New("receipts: share secret required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ShareSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign returns a token for the receipt and its expiry.
func (s *ShareSigner) Sign(clientID, confirmationNumber string) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := ShareClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    shareIssuer,
			Subject:   confirmationNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("receipts: sign share token: %w", err)
	}
	return token, expires, nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *ShareSigner) Verify(token string) (ShareClaims, error) {
	claims := ShareClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithIssuer(shareIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ShareClaims{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}
	if claims.ClientID == "" || claims.Subject == "" {
		return ShareClaims{}, ErrInvalidShareToken
	}
	return claims, nil
}
