package hashing

import (
	"io"
	"log/slog"
)

// Config is the complete, immutable configuration of a [Manager].  Build it
// once at startup; the Manager copies what it needs and never mutates it.
type Config struct {
	// Bcrypt configures the preferred engine and its enforced bounds.
	Bcrypt BcryptOptions

	// Stretch configures the legacy engine.
	Stretch StretchOptions

	// Fallback, when set, verifies hashes in formats the Manager does not
	// recognise, e.g. bare digests from a predecessor system.
	Fallback Verifier

	// Rand overrides the entropy source of both engines.  Nil keeps the
	// per-engine setting, which defaults to crypto/rand.
	Rand io.Reader

	// Logger receives debug records about dispatch decisions.  Passwords and
	// hashes are never logged.  Nil discards.
	Logger *slog.Logger
}

// DefaultConfig returns the recommended configuration: bcrypt at
// [DefaultBcryptCost] within [MinBcryptCost, MaxBcryptCost], and the legacy
// engine at [DefaultStretchCostLog2].
func DefaultConfig() Config {
	return Config{
		Bcrypt:  DefaultBcryptOptions(),
		Stretch: DefaultStretchOptions(),
	}
}
