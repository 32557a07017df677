package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultArgon2MaxMemory is the largest memory cost, in KiB, an
// [Argon2Verifier] will honour when no limit is configured (256 MiB).
const DefaultArgon2MaxMemory uint32 = 256 * 1024

// Argon2Verifier verifies Argon2i and Argon2id hashes in PHC string format
// imported from other systems:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
//
// It only verifies; new hashes are always produced by the preferred engine,
// so these hashes are always reported as needing a rehash.  Plug it into a
// [Manager] through [Config].Fallback, usually inside a [Chain].
type Argon2Verifier struct {
	// MaxMemory caps the memory cost read from a stored hash, so a forged
	// hash cannot make verification allocate without limit.  0 selects
	// [DefaultArgon2MaxMemory].
	MaxMemory uint32
}

// phcParams holds parameters and raw values decoded from a PHC hash string.
type phcParams struct {
	variant string
	version uint32
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

// Verify recomputes the Argon2 key with the parameters stored in hash and
// compares in constant time.
func (v Argon2Verifier) Verify(password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "$argon2i$") && !strings.HasPrefix(hash, "$argon2id$") {
		return false, fmt.Errorf("%w: not an argon2 PHC string", ErrUnsupportedFormat)
	}
	p, err := decodePHC(hash)
	if err != nil {
		return false, err
	}
	limit := v.MaxMemory
	if limit == 0 {
		limit = DefaultArgon2MaxMemory
	}
	if p.memory > limit {
		return false, fmt.Errorf("%w: argon2 memory %d KiB exceeds limit %d KiB", ErrInvalidHash, p.memory, limit)
	}

	keyLen := uint32(len(p.hash))
	var computed []byte
	if p.variant == "argon2id" {
		computed = argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, keyLen)
	} else {
		computed = argon2.Key([]byte(password), p.salt, p.time, p.memory, p.threads, keyLen)
	}
	return subtle.ConstantTimeCompare(computed, p.hash) == 1, nil
}

// decodePHC parses an Argon2 PHC hash string.
//
// Expected format (6 dollar-delimited segments, first is empty):
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func decodePHC(encoded string) (*phcParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5-segment PHC string, got %d segments",
			ErrInvalidHash, len(parts)-1)
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrInvalidHash, version)
	}

	kvs, err := parseParams(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	memory, ok1 := kvs["m"]
	time, ok2 := kvs["t"]
	threads, ok3 := kvs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing m/t/p in parameter segment %q", ErrInvalidHash, parts[3])
	}
	if time < 1 || threads < 1 || threads > 255 || memory > 1<<32-1 {
		return nil, fmt.Errorf("%w: argon2 parameters out of range", ErrInvalidHash)
	}

	// Some encoders pad, most do not.
	salt, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[4], "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[5], "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash base64: %v", ErrInvalidHash, err)
	}
	if len(hash) < 4 {
		return nil, fmt.Errorf("%w: argon2 key too short", ErrInvalidHash)
	}

	return &phcParams{
		variant: parts[1],
		version: uint32(version),
		memory:  uint32(memory),
		time:    uint32(time),
		threads: uint8(threads),
		salt:    salt,
		hash:    hash,
	}, nil
}

// parseKV parses a "key=value" string and returns the uint64 value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 64)
}

// parseParams splits "m=65536,t=3,p=2" into a map.
func parseParams(s string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed param %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %v", kv, err)
		}
		out[kv[:eq]] = v
	}
	return out, nil
}
