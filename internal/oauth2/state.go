package oauth2

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/entities"
)

const (
	stateIssuer  = "eztutor-drive-export"
	stateKeySize = 32
	hkdfInfo     = "eztutor oauth state v1"
)

// PendingExport is an export the user asked for before consenting. It rides
// inside the state so the callback can resume it.
type PendingExport struct {
	ContentType entities.ContentType `json:"ct"`
	ContentID   uint                 `json:"cid"`
}

// StateClaims is the payload of a signed OAuth state.
type StateClaims struct {
	Pending *PendingExport `json:"pending,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into a user id.
func (c *StateClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidState)
	}
	return uint(id), nil
}

// StateSigner issues and verifies HMAC-signed OAuth state tokens, letting the
// callback identify the user without a server-side session.
type StateSigner struct {
	key   []byte
	ttl   time.Duration
	clock clock.Clock
}

func NewStateSigner(key []byte, ttl time.Duration, clk clock.Clock) *StateSigner {
	if clk == nil {
		clk = clock.Real{}
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &StateSigner{key: key, ttl: ttl, clock: clk}
}

// DeriveStateKey picks the signing key: the explicit secret when set,
// otherwise an HKDF expansion of the encryption key, otherwise random bytes
// (states then do not survive a restart).
func DeriveStateKey(secret string, encryptionKey []byte) ([]byte, error) {
	if secret != "" {
		return []byte(secret), nil
	}

	key := make([]byte, stateKeySize)
	if len(encryptionKey) > 0 {
		r := hkdf.New(sha256.New, encryptionKey, nil, []byte(hkdfInfo))
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("failed to derive state key: %w", err)
		}
		return key, nil
	}

	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate state key: %w", err)
	}
	return key, nil
}

// Sign produces a state token for userID.
func (s *StateSigner) Sign(userID uint, pending *PendingExport) (string, error) {
	now := s.clock.Now()
	claims := StateClaims{
		Pending: pending,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (s *StateSigner) Verify(state string) (*StateClaims, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidState)
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
