// Package itoa64 implements the base-64 variant used by traditional Unix
// crypt(3) hashes and the portable phpass family.
//
// It is not RFC 4648 base64: the alphabet starts with "./", there is no
// padding, and each 24-bit group is packed least-significant bits first.
package itoa64

import "strings"

// Alphabet is the 64-symbol crypt(3) alphabet.  The ordinal of a symbol is
// also how a legacy hash encodes its log2 iteration count.
const Alphabet = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Encode encodes the first count bytes of src.
//
// Every 3 input bytes become 4 symbols.  A trailing group of 1 or 2 bytes
// emits 2 or 3 symbols respectively, so the output length is always
// ceil(8*count/6).  count is clamped to len(src).
func Encode(src []byte, count int) string {
	if count > len(src) {
		count = len(src)
	}
	if count <= 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(EncodedLen(count))

	for i := 0; i < count; {
		v := uint32(src[i])
		i++
		b.WriteByte(Alphabet[v&0x3f])
		if i < count {
			v |= uint32(src[i]) << 8
		}
		b.WriteByte(Alphabet[(v>>6)&0x3f])
		if i >= count {
			break
		}
		i++
		if i < count {
			v |= uint32(src[i]) << 16
		}
		b.WriteByte(Alphabet[(v>>12)&0x3f])
		if i >= count {
			break
		}
		i++
		b.WriteByte(Alphabet[(v>>18)&0x3f])
	}
	return b.String()
}

// EncodedLen returns the length of the encoding of n bytes.
func EncodedLen(n int) int {
	if n <= 0 {
		return 0
	}
	return (8*n + 5) / 6
}

// Index returns the ordinal of c in [Alphabet], or -1 if c is not a member.
func Index(c byte) int {
	return strings.IndexByte(Alphabet, c)
}
