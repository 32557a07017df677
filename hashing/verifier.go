package hashing

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a password against a stored hash in some format.
//
// A Verifier that does not recognise the format of hash must return an
// error wrapping [ErrUnsupportedFormat] or [ErrAlgorithmMismatch]; [Chain]
// relies on this to move on to the next verifier.
type Verifier interface {
	Verify(password, hash string) (bool, error)
}

// VerifierFunc adapts an ordinary function to the [Verifier] interface.
type VerifierFunc func(password, hash string) (bool, error)

// Verify calls f(password, hash).
func (f VerifierFunc) Verify(password, hash string) (bool, error) { return f(password, hash) }

// HasherVerifier returns a Verifier backed by h.Check.
func HasherVerifier(h Hasher) Verifier { return VerifierFunc(h.Check) }

type chain []Verifier

// Chain returns a Verifier that offers hash to each of vs in turn.  The
// first verifier that recognises the format decides the result; if none
// does, Chain returns [ErrUnsupportedFormat].  Nil entries are skipped.
func Chain(vs ...Verifier) Verifier {
	out := make(chain, 0, len(vs))
	for _, v := range vs {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (c chain) Verify(password, hash string) (bool, error) {
	for _, v := range c {
		ok, err := v.Verify(password, hash)
		if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrAlgorithmMismatch) {
			continue
		}
		return ok, err
	}
	return false, fmt.Errorf("%w: no verifier in chain recognised the hash", ErrUnsupportedFormat)
}

// MD5DigestVerifier verifies bare, unsalted hexadecimal MD5 digests as left
// behind by older systems.  It exists only for migration; such hashes always
// need rehashing.
type MD5DigestVerifier struct{}

// Verify compares hex(md5(password)) with hash, ignoring case.
func (MD5DigestVerifier) Verify(password, hash string) (bool, error) {
	if !isMD5Hex(hash) {
		return false, fmt.Errorf("%w: not a 32-character hex digest", ErrUnsupportedFormat)
	}
	sum := md5.Sum([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(hash))) == 1, nil
}

func isMD5Hex(s string) bool {
	if len(s) != 2*md5.Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// md5Hex is the single fast pre-digest applied to passwords whose stored
// hash carries the "U$" marker.
func md5Hex(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// bcryptCompatVerifier verifies "$2a$" and "$2b$" hashes with
// golang.org/x/crypto/bcrypt.
type bcryptCompatVerifier struct{}

func (bcryptCompatVerifier) Verify(password, hash string) (bool, error) {
	if DetectFormat(hash) != FormatBcryptCompat {
		return false, fmt.Errorf("%w: hash is not $2a$/$2b$ bcrypt", ErrAlgorithmMismatch)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return true, nil
}

// Info extracts the work factor with bcrypt.Cost.
func (bcryptCompatVerifier) Info(hash string) (HashInfo, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return HashInfo{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return HashInfo{
		Format: FormatBcryptCompat,
		Params: map[string]any{"cost": cost},
	}, nil
}
