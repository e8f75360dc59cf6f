package booking

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS - Public tokens and primary keys
// =============================================================================

const (
	// DefaultTokenLength is 32 hex characters (128 bits).
	DefaultTokenLength = 32

	// MinTokenLength keeps tokens from shrinking below 48 bits.
	MinTokenLength = 12

	// MaxTokenAttempts bounds regeneration after a uniqueness violation.
	MaxTokenAttempts = 3
)

// TokenGenerator produces opaque, non-sequential public identifiers.
type TokenGenerator interface {
	Generate() (string, error)
}

// HashTokenGenerator hashes (current time, random bytes, secret) with SHA-256
// and keeps the first Length hex characters.
type HashTokenGenerator struct {
	Secret string
	Length int
	Clock  func() time.Time
	Rand   io.Reader
}

// NewHashTokenGenerator returns a generator with the default length.
func NewHashTokenGenerator(secret string) *HashTokenGenerator {
	return &HashTokenGenerator{Secret: secret, Length: DefaultTokenLength}
}

func (g *HashTokenGenerator) Generate() (string, error) {
	length := g.Length
	if length == 0 {
		length = DefaultTokenLength
	}
	if length < MinTokenLength || length > sha256.Size*2 {
		return "", fmt.Errorf("%w: token length %d outside [%d, %d]",
			ErrInvalidInput, length, MinTokenLength, sha256.Size*2)
	}

	now := time.Now
	if g.Clock != nil {
		now = g.Clock
	}
	src := rand.Reader
	if g.Rand != nil {
		src = g.Rand
	}

	nonce := make([]byte, 16)
	if _, err := io.ReadFull(src, nonce); err != nil {
		return "", fmt.Errorf("failed to read token randomness: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(now().UnixNano(), 10)))
	h.Write(nonce)
	h.Write([]byte(g.Secret))
	return hex.EncodeToString(h.Sum(nil))[:length], nil
}

// NewID returns a primary key for a new row.
func NewID() string {
	return uuid.NewString()
}

// withFreshToken runs insert with newly generated tokens until it stops
// reporting ErrDuplicateToken or MaxTokenAttempts is reached.
func withFreshToken(gen TokenGenerator, insert func(token string) error) error {
	var err error
	for attempt := 0; attempt < MaxTokenAttempts; attempt++ {
		token, genErr := gen.Generate()
		if genErr != nil {
			return genErr
		}
		err = insert(token)
		if !errors.Is(err, ErrDuplicateToken) {
			return err
		}
	}
	return fmt.Errorf("failed to allocate unique token after %d attempts: %w", MaxTokenAttempts, err)
}
