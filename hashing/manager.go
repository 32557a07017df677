package hashing

import (
	"fmt"
	"log/slog"
	"strings"
)

// predigestMarker prefixes stored hashes whose password was an MD5 hex
// digest when it was hashed.  Only the "U" is stripped; the rest of the
// string is an ordinary legacy hash.
const predigestMarker = "U$"

// Manager recognises a stored hash by its prefix, routes it to the engine
// that can verify it, and decides when it should be regenerated.
//
// New hashes always come from the preferred engine ([BcryptHasher]); older
// formats are verified so users can log in and have their hash upgraded:
//
//	if m.Check(password, stored) {
//	    if m.NeedsRehash(stored) {
//	        newHash, err := m.Make(password)
//	        // persist newHash
//	    }
//	}
//
// # Thread safety
//
// A Manager is immutable after construction.  All methods are safe for
// concurrent use without locking.
type Manager struct {
	bcrypt    *BcryptHasher
	stretch   *StretchedHasher
	verifiers map[Format]Verifier
	fallback  Verifier
	logger    *slog.Logger
}

// NewManager creates a Manager from cfg.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Rand != nil {
		cfg.Bcrypt.Rand = cfg.Rand
		cfg.Stretch.Rand = cfg.Rand
	}
	bcryptH, err := NewBcryptHasher(cfg.Bcrypt)
	if err != nil {
		return nil, fmt.Errorf("hashing: failed to create bcrypt hasher: %w", err)
	}
	stretchH := NewStretchedHasher(cfg.Stretch)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		bcrypt:   bcryptH,
		stretch:  stretchH,
		fallback: cfg.Fallback,
		logger:   logger,
	}
	m.verifiers = map[Format]Verifier{
		// No fallback at this layer: unknown formats are decided below.
		FormatBcrypt:       HasherVerifier(bcryptH),
		FormatBcryptCompat: bcryptCompatVerifier{},
		FormatLegacySHA512: HasherVerifier(stretchH),
		FormatLegacyMD5:    HasherVerifier(stretchH),
	}
	return m, nil
}

// NewDefaultManager creates a Manager with [DefaultConfig].
//
//	m, err := hashing.NewDefaultManager()
//	hash, _ := m.Make("secret")
func NewDefaultManager() (*Manager, error) {
	return NewManager(DefaultConfig())
}

// Bcrypt returns the preferred engine.
func (m *Manager) Bcrypt() *BcryptHasher { return m.bcrypt }

// Stretched returns the legacy engine.
func (m *Manager) Stretched() *StretchedHasher { return m.stretch }

// Make hashes password with the preferred engine at its configured cost.
func (m *Manager) Make(password string) (string, error) {
	return m.bcrypt.Make(password)
}

// Check reports whether password matches stored.  Malformed, corrupt and
// unrecognised hashes all yield false; use [Manager.Verify] to tell them
// apart.
//
// Besides "$2y$", "$S$", "$P$" and "$H$", Check also accepts "$2a$" and
// "$2b$" hashes written by other bcrypt libraries ([FormatBcryptCompat]).
// Such hashes are never produced here and [Manager.NeedsRehash] always
// reports them, so a successful login moves them to "$2y$".
func (m *Manager) Check(password, stored string) bool {
	ok, err := m.Verify(password, stored)
	if err != nil {
		m.logger.Debug("password verification failed",
			slog.String("format", DetectFormat(stripPredigest(stored)).String()),
			slog.String("error", err.Error()))
		return false
	}
	return ok
}

// Verify is the strict form of [Manager.Check]: it returns an error when the
// stored hash cannot be verified at all.
//
// A stored hash starting "U$" was made from the MD5 hex digest of the
// password; the marker is stripped and the password pre-digested before
// dispatch.
func (m *Manager) Verify(password, stored string) (bool, error) {
	if strings.HasPrefix(stored, predigestMarker) {
		stored = stripPredigest(stored)
		password = md5Hex(password)
	}

	format := DetectFormat(stored)
	v, ok := m.verifiers[format]
	if !ok {
		if m.fallback == nil {
			return false, fmt.Errorf("%w: unrecognised hash prefix", ErrUnsupportedFormat)
		}
		m.logger.Debug("verifying with fallback", slog.String("format", format.String()))
		v = m.fallback
	}
	return v.Verify(password, stored)
}

// NeedsRehash reports whether stored should be replaced by a fresh
// [Manager.Make] hash after the next successful login.  It is true for
// every hash that is not a "$2y$" hash within the configured bounds.
func (m *Manager) NeedsRehash(stored string) bool {
	return m.Classify(stored) != StatusCurrent
}

// Classify reports how stored relates to the preferred engine's
// configuration.
func (m *Manager) Classify(stored string) BcryptStatus {
	return m.bcrypt.Classify(stored)
}

// Format returns the detected format of stored, ignoring any "U$" marker.
func (m *Manager) Format(stored string) Format {
	return DetectFormat(stripPredigest(stored))
}

// Info extracts metadata from stored by routing it to the engine that
// recognises its format.
func (m *Manager) Info(stored string) (HashInfo, error) {
	stored = stripPredigest(stored)
	switch DetectFormat(stored) {
	case FormatBcrypt:
		return m.bcrypt.Info(stored)
	case FormatLegacySHA512, FormatLegacyMD5:
		return m.stretch.Info(stored)
	case FormatBcryptCompat:
		return bcryptCompatVerifier{}.Info(stored)
	default:
		return HashInfo{}, fmt.Errorf("%w: unrecognised hash prefix", ErrUnsupportedFormat)
	}
}

func stripPredigest(stored string) string {
	if strings.HasPrefix(stored, predigestMarker) {
		return stored[1:]
	}
	return stored
}
