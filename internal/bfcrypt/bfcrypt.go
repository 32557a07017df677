// Package bfcrypt computes bcrypt ("$2y$") hashes from an explicit settings
// string.
//
// golang.org/x/crypto/bcrypt always generates its own salt and always emits
// "$2a$", so hashes whose settings are produced elsewhere (and must be
// reproduced byte-for-byte) are computed here directly on top of
// golang.org/x/crypto/blowfish.
package bfcrypt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blowfish"
)

const (
	MinCost = 4
	MaxCost = 31

	// SaltSize is the number of raw salt bytes carried by a setting.
	SaltSize = 16
	// EncodedSaltLen is the length of the encoded salt.
	EncodedSaltLen = 22
	// SettingLen is the length of "$2y$NN$" plus the encoded salt.
	SettingLen = 7 + EncodedSaltLen
	// HashLen is the length of a complete encoded hash.
	HashLen = SettingLen + 31

	cryptedSize = 23
)

// Alphabet is the bcrypt base-64 alphabet.
const Alphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var encoding = base64.NewEncoding(Alphabet).WithPadding(base64.NoPadding)

// "OrpheanBeholderScryDoubt"
var magicCipherData = []byte{
	0x4f, 0x72, 0x70, 0x68,
	0x65, 0x61, 0x6e, 0x42,
	0x65, 0x68, 0x6f, 0x6c,
	0x64, 0x65, 0x72, 0x53,
	0x63, 0x72, 0x79, 0x44,
	0x6f, 0x75, 0x62, 0x74,
}

var (
	ErrMalformedSetting = errors.New("bfcrypt: malformed setting")
	ErrCost             = errors.New("bfcrypt: cost out of range")
)

// Setting is the parsed form of a bcrypt settings prefix.
type Setting struct {
	Minor byte
	Cost  int
	// Salt is the 22-character encoded salt with its final symbol
	// normalised, exactly as it appears in the output hash.
	Salt string
}

// ParseSetting parses the first [SettingLen] bytes of s.  s may be a bare
// setting or a complete hash.
func ParseSetting(s []byte) (Setting, error) {
	if len(s) < SettingLen {
		return Setting{}, fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedSetting, SettingLen, len(s))
	}
	if s[0] != '$' || s[1] != '2' || s[3] != '$' || s[6] != '$' {
		return Setting{}, fmt.Errorf("%w: bad prefix %q", ErrMalformedSetting, s[:7])
	}
	switch s[2] {
	case 'a', 'b', 'y':
	default:
		return Setting{}, fmt.Errorf("%w: unknown minor version %q", ErrMalformedSetting, s[2])
	}
	if !isDigit(s[4]) || !isDigit(s[5]) {
		return Setting{}, fmt.Errorf("%w: cost %q is not two digits", ErrMalformedSetting, s[4:6])
	}
	cost := int(s[4]-'0')*10 + int(s[5]-'0')
	if cost < MinCost || cost > MaxCost {
		return Setting{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrCost, cost, MinCost, MaxCost)
	}

	salt := append([]byte(nil), s[7:SettingLen]...)
	for _, c := range salt {
		if strings.IndexByte(Alphabet, c) < 0 {
			return Setting{}, fmt.Errorf("%w: invalid salt symbol %q", ErrMalformedSetting, c)
		}
	}
	// Only the top two bits of the final symbol carry salt; crypt_blowfish
	// clears the rest in its output.
	last := strings.IndexByte(Alphabet, salt[EncodedSaltLen-1])
	salt[EncodedSaltLen-1] = Alphabet[last&0x30]

	return Setting{Minor: s[2], Cost: cost, Salt: string(salt)}, nil
}

// Crypt hashes password using the cost and salt in setting and returns the
// complete 60-byte encoded hash.  setting may itself be a complete hash, in
// which case only its settings prefix is used.
func Crypt(password, setting []byte) ([]byte, error) {
	st, err := ParseSetting(setting)
	if err != nil {
		return nil, err
	}
	csalt, err := encoding.DecodeString(st.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSetting, err)
	}

	c, err := expensiveBlowfishSetup(password, uint32(st.Cost), csalt)
	if err != nil {
		return nil, err
	}

	cipherData := make([]byte, len(magicCipherData))
	copy(cipherData, magicCipherData)
	for i := 0; i < 24; i += 8 {
		for j := 0; j < 64; j++ {
			c.Encrypt(cipherData[i:i+8], cipherData[i:i+8])
		}
	}

	out := make([]byte, 0, HashLen)
	out = append(out, setting[:7]...)
	out = append(out, st.Salt...)
	// Only 23 of the 24 encrypted bytes are encoded, for compatibility with
	// the C implementations.
	out = encoding.AppendEncode(out, cipherData[:cryptedSize])
	return out, nil
}

func expensiveBlowfishSetup(key []byte, cost uint32, salt []byte) (*blowfish.Cipher, error) {
	// The C implementations include the trailing NUL of the key during
	// expansion.  Copy so the caller's slice is never extended in place.
	ckey := append(key[:len(key):len(key)], 0)

	c, err := blowfish.NewSaltedCipher(ckey, salt)
	if err != nil {
		return nil, fmt.Errorf("bfcrypt: %w", err)
	}

	rounds := uint64(1) << cost
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(ckey, c)
		blowfish.ExpandKey(salt, c)
	}
	return c, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
