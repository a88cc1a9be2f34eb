package core

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// EncodeNonce returns the big-endian encoding of n.
func EncodeNonce(n uint64) [NonceSize]byte {
	var b [NonceSize]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b
}

// DecodeNonce returns the uint64 value of a big-endian encoded nonce.
func DecodeNonce(b [NonceSize]byte) uint64 {
	return binary.BigEndian.Uint64(b[:])
}

// HeaderDigest derives the candidate header digest a plugin consumes: the
// SHA3-256 of the pre-nonce fragment, the 8 nonce bytes, and the post-nonce
// fragment, spliced in that order.
func HeaderDigest(pre []byte, nonce [NonceSize]byte, post []byte) [DigestSize]byte {
	h := sha3.New256()
	h.Write(pre)
	h.Write(nonce[:])
	h.Write(post)
	var ret [DigestSize]byte
	copy(ret[:], h.Sum(nil))
	return ret
}
