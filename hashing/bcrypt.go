package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/hasbyte1/go-phpass/internal/bfcrypt"
)

const (
	// DefaultBcryptCost is the work factor used when none is configured.
	DefaultBcryptCost = 10

	// MinBcryptCost and MaxBcryptCost are the absolute limits of the
	// algorithm; configured bounds must lie inside them.
	MinBcryptCost = bfcrypt.MinCost
	MaxBcryptCost = bfcrypt.MaxCost
)

// BcryptStatus classifies a stored hash against a [BcryptHasher]'s
// configuration.
type BcryptStatus int

const (
	// StatusCurrent is a "$2y$" hash whose work factor is within the
	// configured bounds.
	StatusCurrent BcryptStatus = iota
	// StatusNotBcrypt is any hash without the "$2y$" tag.
	StatusNotBcrypt
	// StatusCorruptBcrypt is a "$2y$" hash whose work factor does not parse.
	StatusCorruptBcrypt
	// StatusOutOfBounds is a "$2y$" hash whose work factor lies outside the
	// configured bounds, typically because the bounds were tightened.
	StatusOutOfBounds
)

func (s BcryptStatus) String() string {
	switch s {
	case StatusCurrent:
		return "current"
	case StatusNotBcrypt:
		return "not-bcrypt"
	case StatusCorruptBcrypt:
		return "corrupt-bcrypt"
	case StatusOutOfBounds:
		return "out-of-bounds"
	default:
		return fmt.Sprintf("BcryptStatus(%d)", int(s))
	}
}

// BcryptOptions configures a [BcryptHasher].
type BcryptOptions struct {
	// Cost is the work factor used by Make.  0 selects [DefaultBcryptCost].
	// It is clamped into [MinCost, MaxCost].
	Cost int

	// MinCost and MaxCost are the enforced bounds.  Stored hashes outside
	// them classify as [StatusOutOfBounds].  Zero values select
	// [MinBcryptCost] and [MaxBcryptCost].
	MinCost int
	MaxCost int

	// Rand is the entropy source for salts.  Nil means crypto/rand.
	Rand io.Reader
}

// DefaultBcryptOptions returns BcryptOptions with [DefaultBcryptCost] and the
// full [MinBcryptCost, MaxBcryptCost] range.
func DefaultBcryptOptions() BcryptOptions {
	return BcryptOptions{
		Cost:    DefaultBcryptCost,
		MinCost: MinBcryptCost,
		MaxCost: MaxBcryptCost,
	}
}

// BcryptHasher produces and verifies "$2y$" bcrypt hashes.
//
// The settings string ("$2y$NN$" plus a 22-character salt) is generated here
// and the hash itself is computed by [bfcrypt.Crypt], so output is
// byte-compatible with PHP's crypt() and password_hash().
//
// # Thread safety
//
// BcryptHasher is immutable after construction and safe for concurrent use.
type BcryptHasher struct {
	cost    int
	minCost int
	maxCost int
	rand    io.Reader
}

// NewBcryptHasher constructs a BcryptHasher with the provided options.
// Returns [ErrInvalidOption] if the bounds fall outside
// [MinBcryptCost, MaxBcryptCost] or MinCost > MaxCost.
func NewBcryptHasher(opts BcryptOptions) (*BcryptHasher, error) {
	if opts.MinCost == 0 {
		opts.MinCost = MinBcryptCost
	}
	if opts.MaxCost == 0 {
		opts.MaxCost = MaxBcryptCost
	}
	if opts.MinCost < MinBcryptCost || opts.MaxCost > MaxBcryptCost || opts.MinCost > opts.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt bounds [%d, %d] must lie within [%d, %d]",
			ErrInvalidOption, opts.MinCost, opts.MaxCost, MinBcryptCost, MaxBcryptCost)
	}
	if opts.Cost < 0 {
		return nil, fmt.Errorf("%w: bcrypt cost %d is negative", ErrInvalidOption, opts.Cost)
	}
	if opts.Cost == 0 {
		opts.Cost = DefaultBcryptCost
	}

	h := &BcryptHasher{minCost: opts.MinCost, maxCost: opts.MaxCost, rand: opts.Rand}
	h.cost = h.clamp(opts.Cost)
	return h, nil
}

// Format returns [FormatBcrypt].
func (h *BcryptHasher) Format() Format { return FormatBcrypt }

// Cost returns the configured default work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// Bounds returns the enforced [min, max] work factor.
func (h *BcryptHasher) Bounds() (int, int) { return h.minCost, h.maxCost }

// ClampCost substitutes the configured default for w <= 0 and clamps the
// result into the configured bounds.  ClampCost(ClampCost(w)) == ClampCost(w).
func (h *BcryptHasher) ClampCost(w int) int {
	if w <= 0 {
		w = h.cost
	}
	return h.clamp(w)
}

func (h *BcryptHasher) clamp(w int) int {
	return min(max(w, h.minCost), h.maxCost)
}

// GenerateSettings returns "$2y$NN$" followed by 22 salt characters derived
// from 16 random bytes.
func (h *BcryptHasher) GenerateSettings(cost int) (string, error) {
	raw, err := randomBytes(h.rand, bfcrypt.SaltSize)
	if err != nil {
		return "", err
	}
	salt := strings.ReplaceAll(base64.StdEncoding.EncodeToString(raw), "+", ".")
	return fmt.Sprintf("%s%02d$%s", string(FormatBcrypt), h.ClampCost(cost), salt[:bfcrypt.EncodedSaltLen]), nil
}

// Make hashes password at the configured work factor.
func (h *BcryptHasher) Make(password string) (string, error) {
	return h.MakeWithCost(password, 0)
}

// MakeWithCost hashes password at ClampCost(cost).
func (h *BcryptHasher) MakeWithCost(password string, cost int) (string, error) {
	setting, err := h.GenerateSettings(cost)
	if err != nil {
		return "", err
	}
	out, err := bfcrypt.Crypt([]byte(password), []byte(setting))
	if err != nil {
		return "", fmt.Errorf("hashing: bcrypt: failed to hash password: %w", err)
	}
	return string(out), nil
}

// Classify reports how hash relates to this hasher's configuration without
// verifying it.
func (h *BcryptHasher) Classify(hash string) BcryptStatus {
	if DetectFormat(hash) != FormatBcrypt {
		return StatusNotBcrypt
	}
	cost := leadingInt(hash[len(FormatBcrypt):min(len(hash), len(FormatBcrypt)+2)])
	if cost == 0 {
		return StatusCorruptBcrypt
	}
	if cost != h.ClampCost(cost) {
		return StatusOutOfBounds
	}
	return StatusCurrent
}

// Check verifies password against a "$2y$" hash.  Hashes in any other format
// return [ErrUnsupportedFormat].
func (h *BcryptHasher) Check(password, hash string) (bool, error) {
	return h.CheckWithFallback(password, hash, nil)
}

// CheckWithFallback verifies password against hash.  When hash is not a
// well-formed "$2y$" hash, fallback decides; with a nil fallback the result
// is [ErrUnsupportedFormat].
//
// Hashes whose work factor is merely out of the configured bounds are still
// verified here so that they can be upgraded after a successful login.
func (h *BcryptHasher) CheckWithFallback(password, hash string, fallback Verifier) (bool, error) {
	switch h.Classify(hash) {
	case StatusNotBcrypt, StatusCorruptBcrypt:
		if fallback == nil {
			return false, fmt.Errorf("%w: hash is not a current bcrypt hash", ErrUnsupportedFormat)
		}
		return fallback.Verify(password, hash)
	}

	computed, err := bfcrypt.Crypt([]byte(password), []byte(hash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return subtle.ConstantTimeCompare(computed, []byte(hash)) == 1, nil
}

// NeedsRehash returns true unless hash classifies as [StatusCurrent].
func (h *BcryptHasher) NeedsRehash(hash string) (bool, error) {
	return h.Classify(hash) != StatusCurrent, nil
}

// Info extracts the work factor and classification from a bcrypt hash.
//
// Returned [HashInfo].Params:
//   - "cost"   → int
//   - "status" → string
func (h *BcryptHasher) Info(hash string) (HashInfo, error) {
	status := h.Classify(hash)
	if status == StatusNotBcrypt {
		return HashInfo{}, fmt.Errorf("%w: hash does not appear to be bcrypt", ErrAlgorithmMismatch)
	}
	st, err := bfcrypt.ParseSetting([]byte(hash))
	if err != nil {
		return HashInfo{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return HashInfo{
		Format: FormatBcrypt,
		Params: map[string]any{
			"cost":   st.Cost,
			"status": status.String(),
		},
	}, nil
}

// leadingInt parses the decimal digits at the start of s; it returns 0 when
// there are none.
func leadingInt(s string) int {
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
