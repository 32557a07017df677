// Package hashing produces and verifies self-describing password hashes and
// migrates users between encodings.
//
// # Architecture
//
// Two engines implement the [Hasher] interface:
//
//   - [BcryptHasher]: the preferred adaptive encoding, "$2y$NN$<salt><hash>".
//   - [StretchedHasher]: the legacy salted, iterated digest encoding: "$S$"
//     (SHA-512) for new hashes, plus "$P$"/"$H$" (MD5) for imported ones.
//
// The [Manager] recognises a stored hash by its prefix ([DetectFormat]),
// routes it to the engine that can verify it, and reports whether it should
// be regenerated.  Formats no engine recognises can be handed to a
// caller-supplied [Verifier] ([Config].Fallback); [Chain], [MD5DigestVerifier]
// and [Argon2Verifier] cover the usual predecessor systems.
//
// # Quick start
//
//	m, err := hashing.NewDefaultManager()
//	if err != nil { log.Fatal(err) }
//
//	hash, _ := m.Make("my-secret-password")
//	ok := m.Check("my-secret-password", hash) // true
//
// # Migration
//
// Call [Manager.NeedsRehash] after every successful login.  It returns true
// for any hash that is not a "$2y$" hash with a work factor inside the
// configured bounds:
//
//	if m.Check(password, stored) && m.NeedsRehash(stored) {
//	    newHash, _ := m.Make(password)
//	    persist(userID, newHash)
//	}
//
// # Hash formats
//
//	$2y$10$<22 salt><31 hash>           bcrypt, 60 characters
//	$S$D<8 salt><43 hash>               2^15 rounds of SHA-512, 55 characters
//	$P$B<8 salt><22 hash>               2^13 rounds of MD5, 34 characters
//	U$S$D...                            as "$S$", password pre-digested with MD5
//
// The legacy salts and digests use the crypt(3) base-64 variant in package
// [github.com/hasbyte1/go-phpass/itoa64].
package hashing
