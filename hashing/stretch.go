package hashing

import (
	"crypto/md5"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/hasbyte1/go-phpass/itoa64"
)

const (
	// MinStretchCostLog2 is the smallest accepted log2 iteration count.
	MinStretchCostLog2 = 7
	// MaxStretchCostLog2 is the largest accepted log2 iteration count.
	MaxStretchCostLog2 = 30
	// DefaultStretchCostLog2 is the log2 iteration count used for new hashes
	// (32768 SHA-512 rounds).
	DefaultStretchCostLog2 = 15

	// StretchHashLength is the maximum length of a legacy hash.
	StretchHashLength = 55

	// MaxPasswordLength is the longest password, in bytes, the legacy engine
	// will hash.
	MaxPasswordLength = 512

	stretchSettingsLength = 12
	stretchSaltBytes      = 6
)

// Digest names the digest function iterated by the legacy engine.
type Digest string

const (
	DigestSHA512 Digest = "sha512"
	// DigestMD5 is only used to verify imported hashes.
	DigestMD5 Digest = "md5"
)

func (d Digest) new() (hash.Hash, error) {
	switch d {
	case DigestSHA512:
		return sha512.New(), nil
	case DigestMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("%w: digest %q", ErrUnsupportedFormat, string(d))
	}
}

// StretchOptions configures a [StretchedHasher].
type StretchOptions struct {
	// CostLog2 is the base-2 log of the iteration count used by Make.
	// It is clamped into [MinStretchCostLog2, MaxStretchCostLog2]; 0 selects
	// [DefaultStretchCostLog2].
	CostLog2 int

	// Rand is the entropy source for salts.  Nil means crypto/rand.
	Rand io.Reader
}

// DefaultStretchOptions returns StretchOptions with [DefaultStretchCostLog2].
func DefaultStretchOptions() StretchOptions {
	return StretchOptions{CostLog2: DefaultStretchCostLog2}
}

// StretchedHasher implements the legacy salted, iterated digest encoding:
//
//	$S$ C SSSSSSSS HHHH...   (55 characters)
//
// where C is the log2 iteration count as an [itoa64] symbol, S is an 8-symbol
// salt and H the encoded digest.  Make always produces "$S$" (SHA-512)
// hashes; "$P$" and "$H$" (MD5) hashes are accepted by Check only.
//
// StretchedHasher is immutable after construction and safe for concurrent use.
type StretchedHasher struct {
	costLog2 int
	rand     io.Reader
}

// NewStretchedHasher constructs a StretchedHasher.  Out-of-range costs are
// clamped rather than rejected.
func NewStretchedHasher(opts StretchOptions) *StretchedHasher {
	cost := opts.CostLog2
	if cost == 0 {
		cost = DefaultStretchCostLog2
	}
	return &StretchedHasher{
		costLog2: ClampStretchCost(cost),
		rand:     opts.Rand,
	}
}

// ClampStretchCost clamps a log2 iteration count into
// [MinStretchCostLog2, MaxStretchCostLog2].
func ClampStretchCost(costLog2 int) int {
	return min(max(costLog2, MinStretchCostLog2), MaxStretchCostLog2)
}

// StretchCostLog2 returns the log2 iteration count encoded at offset 3 of a
// legacy settings string, or -1 if there is none.
func StretchCostLog2(setting string) int {
	if len(setting) < 4 {
		return -1
	}
	return itoa64.Index(setting[3])
}

// Format returns [FormatLegacySHA512].
func (h *StretchedHasher) Format() Format { return FormatLegacySHA512 }

// CostLog2 returns the configured log2 iteration count.
func (h *StretchedHasher) CostLog2() int { return h.costLog2 }

// GenerateSettings returns a fresh 12-character "$S$" settings string with
// the clamped cost and a 6-byte random salt.
func (h *StretchedHasher) GenerateSettings(costLog2 int) (string, error) {
	salt, err := randomBytes(h.rand, stretchSaltBytes)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(stretchSettingsLength)
	b.WriteString(string(FormatLegacySHA512))
	b.WriteByte(itoa64.Alphabet[ClampStretchCost(costLog2)])
	b.WriteString(itoa64.Encode(salt, stretchSaltBytes))
	return b.String(), nil
}

// StretchCrypt computes a legacy hash of password with the digest d, using
// the first 12 characters of setting (a settings string or a full hash).
//
// The digest is seeded with d(salt || password) and then iterated
// 2^cost times as d(previous || password).
func StretchCrypt(d Digest, password, setting string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrPasswordTooLong, len(password), MaxPasswordLength)
	}
	if len(setting) > stretchSettingsLength {
		setting = setting[:stretchSettingsLength]
	}
	if len(setting) < 3 || setting[0] != '$' || setting[2] != '$' {
		return "", fmt.Errorf("%w: %q", ErrMalformedSettings, setting)
	}
	costLog2 := StretchCostLog2(setting)
	if costLog2 < MinStretchCostLog2 || costLog2 > MaxStretchCostLog2 {
		return "", fmt.Errorf("%w: log2 count %d not in [%d, %d]",
			ErrCostOutOfRange, costLog2, MinStretchCostLog2, MaxStretchCostLog2)
	}
	if len(setting) != stretchSettingsLength {
		return "", fmt.Errorf("%w: got %d characters, want 8", ErrSaltTooShort, len(setting)-4)
	}
	salt := setting[4:stretchSettingsLength]

	h, err := d.new()
	if err != nil {
		return "", err
	}
	pw := []byte(password)

	h.Write([]byte(salt))
	h.Write(pw)
	sum := h.Sum(nil)
	for count := 1 << costLog2; count > 0; count-- {
		h.Reset()
		h.Write(sum)
		h.Write(pw)
		sum = h.Sum(sum[:0])
	}

	out := setting + itoa64.Encode(sum, len(sum))
	if want := stretchSettingsLength + itoa64.EncodedLen(len(sum)); len(out) != want {
		return "", fmt.Errorf("%w: got %d, want %d", ErrEncodingLengthMismatch, len(out), want)
	}
	if len(out) > StretchHashLength {
		out = out[:StretchHashLength]
	}
	return out, nil
}

// Make hashes password with SHA-512 at the configured cost.
func (h *StretchedHasher) Make(password string) (string, error) {
	setting, err := h.GenerateSettings(h.costLog2)
	if err != nil {
		return "", err
	}
	return StretchCrypt(DigestSHA512, password, setting)
}

// Check verifies password against a "$S$", "$P$" or "$H$" hash.
func (h *StretchedHasher) Check(password, hash string) (bool, error) {
	d, err := stretchDigest(hash)
	if err != nil {
		return false, err
	}
	computed, err := StretchCrypt(d, password, hash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// NeedsRehash reports whether hash is not a full-length "$S$" hash at the
// configured cost.  Any other legacy hash is rehashable.
func (h *StretchedHasher) NeedsRehash(hash string) (bool, error) {
	if _, err := stretchDigest(hash); err != nil {
		return false, err
	}
	if DetectFormat(hash) != FormatLegacySHA512 || len(hash) != StretchHashLength {
		return true, nil
	}
	return StretchCostLog2(hash) != h.costLog2, nil
}

// Info extracts the digest and iteration count from a legacy hash.
//
// Returned [HashInfo].Params:
//   - "digest"     → string
//   - "cost_log2"  → int
//   - "iterations" → int
func (h *StretchedHasher) Info(hash string) (HashInfo, error) {
	d, err := stretchDigest(hash)
	if err != nil {
		return HashInfo{}, err
	}
	cost := StretchCostLog2(hash)
	if cost < MinStretchCostLog2 || cost > MaxStretchCostLog2 {
		return HashInfo{}, fmt.Errorf("%w: log2 count %d", ErrInvalidHash, cost)
	}
	return HashInfo{
		Format: DetectFormat(hash),
		Params: map[string]any{
			"digest":     string(d),
			"cost_log2":  cost,
			"iterations": 1 << cost,
		},
	}, nil
}

func stretchDigest(hash string) (Digest, error) {
	switch DetectFormat(hash) {
	case FormatLegacySHA512:
		return DigestSHA512, nil
	case FormatLegacyMD5:
		return DigestMD5, nil
	default:
		return "", fmt.Errorf("%w: hash is not a legacy stretched hash", ErrAlgorithmMismatch)
	}
}
