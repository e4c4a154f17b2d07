// Package crypt implements the password-derived keystream cipher used for
// per-entry payload encryption.
//
// The cipher XORs a payload with a pseudo one-time pad derived from the
// password, so applying it twice with the same password restores the
// original bytes. It carries no authentication tag: a wrong password is only
// detected downstream, when the decrypted payload fails its CRC check.
//
// Two modes exist. The modern mode derives a PBKDF2 key and expands it with
// HMAC-SHA256 block counters. The legacy mode repeats the raw password bytes
// and exists solely to stay bit-exact with archives written before the
// derivation was hardened; it is selected through configuration only.
package crypt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	Iterations = 100_000

	// KeySize is the derived key length in bytes.
	KeySize = 32

	// SaltSize is the number of SHA-256 digest bytes used as the salt.
	SaltSize = 16

	// BlockSize is the keystream block granularity in bytes, one
	// HMAC-SHA256 output per block counter.
	BlockSize = sha256.Size
)

// streamLabel separates the keystream HMAC domain from any other use of the
// derived key. It is part of the on-disk contract and must not change.
var streamLabel = []byte("BAARSTREAM")

// Apply XORs buf in place with the password-derived keystream. Encryption
// and decryption are the same operation.
//
// If buf or password is empty, Apply is a no-op. The derived key material is
// wiped before returning.
func Apply(buf []byte, password string) {
	if len(buf) == 0 || len(password) == 0 {
		return
	}

	passwordBytes := []byte(password)

	// The salt is deterministic so decryption needs nothing beyond the
	// password itself: the first half of SHA-256(password).
	saltFull := sha256.Sum256(passwordBytes)
	key := pbkdf2.Key(passwordBytes, saltFull[:SaltSize], Iterations, KeySize, sha256.New)

	mac := hmac.New(sha256.New, key)
	var counter [8]byte
	var block uint64

	for off := 0; off < len(buf); off += BlockSize {
		mac.Reset()
		binary.BigEndian.PutUint64(counter[:], block)
		mac.Write(streamLabel)
		mac.Write(counter[:])
		ks := mac.Sum(nil)

		end := off + BlockSize
		if end > len(buf) {
			end = len(buf)
		}
		for i := off; i < end; i++ {
			buf[i] ^= ks[i-off]
		}
		block++
	}

	wipe(key)
	wipe(saltFull[:])
}

// ApplyLegacy XORs buf in place with the raw password bytes repeated. This
// is the pre-derivation cipher; it must stay bit-exact with existing
// archives.
//
// If buf or password is empty, ApplyLegacy is a no-op.
func ApplyLegacy(buf []byte, password string) {
	if len(buf) == 0 || len(password) == 0 {
		return
	}

	pw := []byte(password)
	for i := range buf {
		buf[i] ^= pw[i%len(pw)]
	}
}

// ApplyMode dispatches to the legacy or modern keystream based on legacyXOR.
func ApplyMode(buf []byte, password string, legacyXOR bool) {
	if legacyXOR {
		ApplyLegacy(buf, password)
		return
	}
	Apply(buf, password)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
