package hashing

import "errors"

// Sentinel errors returned by hashing operations.
//
// Use [errors.Is] for comparisons:
//
//	_, err := hashing.StretchCrypt(hashing.DigestSHA512, password, setting)
//	if errors.Is(err, hashing.ErrCostOutOfRange) {
//	    // the setting carries an unusable iteration count
//	}
var (
	// ErrMalformedSettings is returned when a settings string is missing its
	// "$" delimiters or is otherwise structurally unusable.
	ErrMalformedSettings = errors.New("hashing: malformed settings string")

	// ErrCostOutOfRange is returned when a settings string carries a cost
	// parameter the algorithm refuses to compute.
	ErrCostOutOfRange = errors.New("hashing: cost parameter out of range")

	// ErrSaltTooShort is returned when the salt embedded in a legacy settings
	// string has fewer than 8 characters.
	ErrSaltTooShort = errors.New("hashing: salt too short")

	// ErrEncodingLengthMismatch is returned when a computed legacy hash does
	// not have the length implied by its digest size.
	ErrEncodingLengthMismatch = errors.New("hashing: encoded hash length mismatch")

	// ErrUnsupportedFormat is returned when a stored hash is not in a format
	// the called component can verify and no fallback was supplied.
	ErrUnsupportedFormat = errors.New("hashing: unsupported hash format")

	// ErrEntropySource is returned when the random source fails.  No hash can
	// be produced without it; callers must treat it as fatal for the request.
	ErrEntropySource = errors.New("hashing: entropy source failure")

	// ErrPasswordTooLong is returned by the legacy engine for passwords longer
	// than [MaxPasswordLength] bytes.
	ErrPasswordTooLong = errors.New("hashing: password too long")

	// ErrInvalidOption is returned when a constructor is called with a
	// parameter value that falls outside the allowed range (e.g., a bcrypt
	// minimum cost below 4 or above 31).
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrAlgorithmMismatch is returned by a [Hasher]'s Check, NeedsRehash or
	// Info method when the hash string was produced by an algorithm that
	// hasher does not implement.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")

	// ErrInvalidHash is returned when a hash string has a recognised prefix
	// but cannot be parsed.
	ErrInvalidHash = errors.New("hashing: invalid or unrecognised hash string")
)
