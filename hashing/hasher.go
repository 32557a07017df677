package hashing

import "strings"

// Format identifies the encoding of a stored hash.  It is determined purely
// from a fixed-offset prefix of the hash string; see [DetectFormat].
type Format string

const (
	// FormatUnknown is any hash no engine in this package recognises.
	FormatUnknown Format = ""
	// FormatBcrypt is the preferred adaptive encoding, "$2y$NN$...".
	FormatBcrypt Format = "$2y$"
	// FormatBcryptCompat covers "$2a$" and "$2b$" hashes produced by other
	// bcrypt implementations.  They are verified but never produced.
	FormatBcryptCompat Format = "$2a$"
	// FormatLegacySHA512 is the stretched SHA-512 encoding, "$S$".
	FormatLegacySHA512 Format = "$S$"
	// FormatLegacyMD5 is the stretched MD5 (portable phpass) encoding.  It is
	// written "$P$", or "$H$" by phpBB3.
	FormatLegacyMD5 Format = "$P$"
)

// formatPrefixes is checked in order; four-byte tags come first.
var formatPrefixes = []struct {
	prefix string
	format Format
}{
	{"$2y$", FormatBcrypt},
	{"$2a$", FormatBcryptCompat},
	{"$2b$", FormatBcryptCompat},
	{"$S$", FormatLegacySHA512},
	{"$P$", FormatLegacyMD5},
	{"$H$", FormatLegacyMD5},
}

// DetectFormat inspects a hash string and returns the [Format] that produced
// it.  It does not validate anything beyond the prefix.
func DetectFormat(hash string) Format {
	for _, p := range formatPrefixes {
		if strings.HasPrefix(hash, p.prefix) {
			return p.format
		}
	}
	return FormatUnknown
}

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatBcrypt:
		return "bcrypt"
	case FormatBcryptCompat:
		return "bcrypt-compat"
	case FormatLegacySHA512:
		return "legacy-sha512"
	case FormatLegacyMD5:
		return "legacy-md5"
	default:
		return "unknown"
	}
}

// Hasher is the core interface satisfied by the hashing engines.
//
// All implementations must be safe for concurrent use by multiple goroutines.
type Hasher interface {
	// Make hashes a plaintext password and returns the encoded hash string.
	// A fresh salt is drawn from the entropy source for every call.
	Make(password string) (string, error)

	// Check verifies that password matches the previously encoded hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or
	// (false, err) if the hash cannot be verified by this hasher.
	Check(password, hash string) (bool, error)

	// NeedsRehash returns true when the hash should be regenerated with this
	// hasher's current configuration.
	NeedsRehash(hash string) (bool, error)

	// Info extracts metadata from an encoded hash string without verifying it.
	Info(hash string) (HashInfo, error)

	// Format returns the Format produced by Make.
	Format() Format
}

// HashInfo carries metadata parsed from an encoded hash string.
type HashInfo struct {
	// Format is the encoding detected from the hash prefix.
	Format Format

	// Params holds algorithm-specific parameters extracted from the hash string.
	//
	// For bcrypt:
	//   "cost"   → int
	//   "status" → string (see [BcryptStatus])
	//
	// For the legacy formats:
	//   "cost_log2"  → int
	//   "iterations" → int
	//   "digest"     → string ("sha512" or "md5")
	Params map[string]any
}
