// SPDX-License-Identifier: ice License 1.0

package keys

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cockroachdb/errors"
)

type (
	// Adapter is the seam over the curve library: keys never do point arithmetic themselves.
	Adapter interface {
		Sign(digest []byte, sk *btcec.PrivateKey) ([]byte, error)
		Verify(digest, sig, pubkey []byte) bool
	}
	PrvKey struct {
		sk      *btcec.PrivateKey
		adapter Adapter
	}
	Option func(*PrvKey)

	schnorrAdapter struct{}
)

const (
	PrivateKeySize = 32
	PublicKeySize  = 32
	SignatureSize  = 64
	DigestSize     = 32
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidHex        = errors.New("invalid hex string")

	Schnorr        Adapter = schnorrAdapter{}
	DefaultAdapter         = Schnorr
)
