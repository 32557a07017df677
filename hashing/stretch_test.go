package hashing_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/hasbyte1/go-phpass/hashing"
	"github.com/hasbyte1/go-phpass/itoa64"
)

// testStretchCost is the minimum legacy log2 count, used so the suite runs
// quickly.
const testStretchCost = hashing.MinStretchCostLog2

func newTestStretchedHasher(t *testing.T) *hashing.StretchedHasher {
	t.Helper()
	return hashing.NewStretchedHasher(hashing.StretchOptions{CostLog2: testStretchCost})
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────────────────────────────────

func TestStretchedHasher_GenerateSettings_ClampsHigh(t *testing.T) {
	h := newTestStretchedHasher(t)
	s, err := h.GenerateSettings(50)
	if err != nil {
		t.Fatalf("GenerateSettings: %v", err)
	}
	if len(s) != 12 {
		t.Fatalf("len = %d, want 12 (%q)", len(s), s)
	}
	if !strings.HasPrefix(s, "$S$") {
		t.Errorf("settings %q do not start with $S$", s)
	}
	if got := hashing.StretchCostLog2(s); got != hashing.MaxStretchCostLog2 {
		t.Errorf("cost = %d, want %d", got, hashing.MaxStretchCostLog2)
	}
}

func TestStretchedHasher_GenerateSettings_ClampsLow(t *testing.T) {
	h := newTestStretchedHasher(t)
	for _, c := range []int{-3, 0, 1, 6} {
		s, err := h.GenerateSettings(c)
		if err != nil {
			t.Fatalf("GenerateSettings(%d): %v", c, err)
		}
		if got := hashing.StretchCostLog2(s); got != hashing.MinStretchCostLog2 {
			t.Errorf("GenerateSettings(%d) cost = %d, want %d", c, got, hashing.MinStretchCostLog2)
		}
	}
}

func TestStretchedHasher_GenerateSettings_FixedEntropy(t *testing.T) {
	h := hashing.NewStretchedHasher(hashing.StretchOptions{
		CostLog2: testStretchCost,
		Rand:     bytes.NewReader([]byte{0, 0, 0, 0xff, 0xff, 0xff}),
	})
	s, err := h.GenerateSettings(15)
	if err != nil {
		t.Fatalf("GenerateSettings: %v", err)
	}
	if want := "$S$D....zzzz"; s != want {
		t.Errorf("settings = %q, want %q", s, want)
	}
}

func TestStretchedHasher_GenerateSettings_EntropyFailure(t *testing.T) {
	h := hashing.NewStretchedHasher(hashing.StretchOptions{Rand: iotest.ErrReader(errors.New("drained"))})
	s, err := h.GenerateSettings(10)
	if !errors.Is(err, hashing.ErrEntropySource) {
		t.Fatalf("expected ErrEntropySource, got %v", err)
	}
	if s != "" {
		t.Errorf("settings must be empty on failure, got %q", s)
	}
	hash, err := h.Make("pw")
	if !errors.Is(err, hashing.ErrEntropySource) || hash != "" {
		t.Errorf("Make = %q, %v; want empty hash and ErrEntropySource", hash, err)
	}
}

func TestClampStretchCost(t *testing.T) {
	for x := -10; x < 40; x++ {
		c := hashing.ClampStretchCost(x)
		if c < hashing.MinStretchCostLog2 || c > hashing.MaxStretchCostLog2 {
			t.Errorf("ClampStretchCost(%d) = %d out of bounds", x, c)
		}
		if hashing.ClampStretchCost(c) != c {
			t.Errorf("ClampStretchCost not idempotent at %d", x)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// StretchCrypt
// ──────────────────────────────────────────────────────────────────────────────

func TestStretchCrypt_KnownPortableHash(t *testing.T) {
	// Reference hash from the portable phpass test suite.
	const hash = "$P$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0"
	got, err := hashing.StretchCrypt(hashing.DigestMD5, "test12345", hash)
	if err != nil {
		t.Fatalf("StretchCrypt: %v", err)
	}
	if got != hash {
		t.Errorf("StretchCrypt = %q, want %q", got, hash)
	}
}

func TestStretchCrypt_Deterministic(t *testing.T) {
	const setting = "$S$5abcdefgh"
	a, err := hashing.StretchCrypt(hashing.DigestSHA512, "hunter2", setting)
	if err != nil {
		t.Fatalf("StretchCrypt: %v", err)
	}
	b, _ := hashing.StretchCrypt(hashing.DigestSHA512, "hunter2", setting)
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
	// A full hash works as its own setting.
	c, _ := hashing.StretchCrypt(hashing.DigestSHA512, "hunter2", a)
	if c != a {
		t.Errorf("re-hash with full hash as setting = %q, want %q", c, a)
	}
	if !strings.HasPrefix(a, setting) {
		t.Errorf("hash %q does not start with its setting", a)
	}
}

func TestStretchCrypt_Lengths(t *testing.T) {
	sha, err := hashing.StretchCrypt(hashing.DigestSHA512, "pw", "$S$5abcdefgh")
	if err != nil {
		t.Fatalf("sha512: %v", err)
	}
	if len(sha) != hashing.StretchHashLength {
		t.Errorf("sha512 hash length = %d, want %d", len(sha), hashing.StretchHashLength)
	}
	md, err := hashing.StretchCrypt(hashing.DigestMD5, "pw", "$P$5abcdefgh")
	if err != nil {
		t.Fatalf("md5: %v", err)
	}
	if len(md) != 12+22 {
		t.Errorf("md5 hash length = %d, want 34", len(md))
	}
}

func TestStretchCrypt_Errors(t *testing.T) {
	tests := []struct {
		name     string
		password string
		setting  string
		want     error
	}{
		{"missing first dollar", "pw", "#S$5abcdefgh", hashing.ErrMalformedSettings},
		{"missing second dollar", "pw", "$S#5abcdefgh", hashing.ErrMalformedSettings},
		{"too short", "pw", "$S", hashing.ErrMalformedSettings},
		{"cost below min", "pw", "$S$4abcdefgh", hashing.ErrCostOutOfRange},
		{"cost above max", "pw", "$S$Tabcdefgh", hashing.ErrCostOutOfRange},
		{"cost not in alphabet", "pw", "$S$$abcdefgh", hashing.ErrCostOutOfRange},
		{"no cost", "pw", "$S$", hashing.ErrCostOutOfRange},
		{"salt too short", "pw", "$S$5abc", hashing.ErrSaltTooShort},
		{"password too long", strings.Repeat("a", hashing.MaxPasswordLength+1), "$S$5abcdefgh", hashing.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hashing.StretchCrypt(hashing.DigestSHA512, tt.password, tt.setting)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if got != "" {
				t.Errorf("error path returned non-empty hash %q", got)
			}
		})
	}
}

func TestStretchCrypt_MaxLengthPasswordAccepted(t *testing.T) {
	_, err := hashing.StretchCrypt(hashing.DigestSHA512, strings.Repeat("a", hashing.MaxPasswordLength), "$S$5abcdefgh")
	if err != nil {
		t.Fatalf("StretchCrypt: %v", err)
	}
}

func TestStretchCrypt_UnknownDigest(t *testing.T) {
	_, err := hashing.StretchCrypt("sha1", "pw", "$S$5abcdefgh")
	if !errors.Is(err, hashing.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestStretchCostLog2(t *testing.T) {
	if got := hashing.StretchCostLog2("$S$D"); got != itoa64.Index('D') {
		t.Errorf("got %d, want %d", got, itoa64.Index('D'))
	}
	if got := hashing.StretchCostLog2("$S$"); got != -1 {
		t.Errorf("short setting: got %d, want -1", got)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Make / Check
// ──────────────────────────────────────────────────────────────────────────────

func TestStretchedHasher_Make_Check(t *testing.T) {
	h := newTestStretchedHasher(t)
	for _, pw := range []string{"", "hunter2", "pässwörd", strings.Repeat("x", 100)} {
		hash, err := h.Make(pw)
		if err != nil {
			t.Fatalf("Make(%q): %v", pw, err)
		}
		if !strings.HasPrefix(hash, "$S$") || len(hash) > hashing.StretchHashLength {
			t.Fatalf("unexpected hash %q", hash)
		}
		ok, err := h.Check(pw, hash)
		if err != nil || !ok {
			t.Errorf("Check(%q) = %v, %v; want true", pw, ok, err)
		}
		ok, err = h.Check(pw+"!", hash)
		if err != nil || ok {
			t.Errorf("Check wrong password = %v, %v; want false", ok, err)
		}
	}
}

func TestStretchedHasher_Make_ProducesUniqueHashes(t *testing.T) {
	h := newTestStretchedHasher(t)
	h1, _ := h.Make("same-password")
	h2, _ := h.Make("same-password")
	if h1 == h2 {
		t.Error("two Make calls with the same password must produce different hashes (different salts)")
	}
}

func TestStretchedHasher_Check_PortableAndPhpBB(t *testing.T) {
	h := newTestStretchedHasher(t)
	for _, hash := range []string{
		"$P$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0",
		"$H$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0",
	} {
		ok, err := h.Check("test12345", hash)
		if err != nil || !ok {
			t.Errorf("Check(%q) = %v, %v; want true", hash, ok, err)
		}
	}
}

func TestStretchedHasher_Check_AlgorithmMismatch(t *testing.T) {
	h := newTestStretchedHasher(t)
	_, err := h.Check("pw", "$2y$10$.vGA1O9wmRjrwAVXD98HNOgsNpDczlqm3Jq7KnEd1rVAGv3Fykk1a")
	if !errors.Is(err, hashing.ErrAlgorithmMismatch) {
		t.Errorf("expected ErrAlgorithmMismatch, got %v", err)
	}
}

func TestStretchedHasher_Check_Truncated(t *testing.T) {
	h := newTestStretchedHasher(t)
	hash, _ := h.Make("pw")
	ok, err := h.Check("pw", hash[:40])
	if err != nil || ok {
		t.Errorf("truncated hash: ok=%v err=%v, want false/nil", ok, err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// NeedsRehash / Info
// ──────────────────────────────────────────────────────────────────────────────

func TestStretchedHasher_NeedsRehash(t *testing.T) {
	low := newTestStretchedHasher(t)
	high := hashing.NewStretchedHasher(hashing.StretchOptions{CostLog2: testStretchCost + 1})
	hash, _ := low.Make("pw")

	if needs, err := low.NeedsRehash(hash); err != nil || needs {
		t.Errorf("same cost: needs=%v err=%v", needs, err)
	}
	if needs, err := high.NeedsRehash(hash); err != nil || !needs {
		t.Errorf("different cost: needs=%v err=%v", needs, err)
	}
	if needs, err := low.NeedsRehash("$P$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0"); err != nil || !needs {
		t.Errorf("md5 hash: needs=%v err=%v", needs, err)
	}
	if needs, err := low.NeedsRehash(hash[:50]); err != nil || !needs {
		t.Errorf("short hash: needs=%v err=%v", needs, err)
	}
	if _, err := low.NeedsRehash("not-a-hash"); !errors.Is(err, hashing.ErrAlgorithmMismatch) {
		t.Errorf("expected ErrAlgorithmMismatch, got %v", err)
	}
}

func TestStretchedHasher_Info(t *testing.T) {
	h := newTestStretchedHasher(t)
	info, err := h.Info("$P$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Format != hashing.FormatLegacyMD5 {
		t.Errorf("Format = %v, want %v", info.Format, hashing.FormatLegacyMD5)
	}
	if info.Params["digest"] != "md5" || info.Params["cost_log2"] != 11 || info.Params["iterations"] != 2048 {
		t.Errorf("unexpected params %v", info.Params)
	}
	if _, err := h.Info("$S$4abcdefgh"); !errors.Is(err, hashing.ErrInvalidHash) {
		t.Errorf("expected ErrInvalidHash, got %v", err)
	}
}

func TestStretchedHasher_SatisfiesHasherInterface(t *testing.T) {
	var _ hashing.Hasher = newTestStretchedHasher(t)
}
