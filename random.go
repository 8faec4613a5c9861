package sntp

import (
	"crypto/rand"
	"encoding/binary"
)

// cryptoRandom implements Random on top of crypto/rand: a cryptographically
// random transmit timestamp resists off-path spoofing and client
// fingerprinting, per draft-ietf-ntp-data-minimization.
type cryptoRandom struct{}

// NewCryptoRandom returns the default Random implementation.
func NewCryptoRandom() Random { return cryptoRandom{} }

func (cryptoRandom) Uint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read on a supported platform does not fail in
		// practice; if it somehow does, degrading to an all-zero value
		// is still a valid (if not very random) nonce rather than a
		// panic in the hot query path.
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}
