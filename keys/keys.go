// SPDX-License-Identifier: ice License 1.0

package keys

import (
	"encoding/hex"
	"log"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/nip19"
)

func WithAdapter(adapter Adapter) Option {
	return func(k *PrvKey) {
		k.adapter = adapter
	}
}

func Generate(opts ...Option) (*PrvKey, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}

	return newPrvKey(sk, opts...), nil
}

func FromHex(privateKeyHex string, opts ...Option) (*PrvKey, error) {
	b, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidHex, err.Error())
	}
	if len(b) != PrivateKeySize {
		return nil, errors.Wrapf(ErrInvalidPrivateKey, "expected %d bytes, got %d", PrivateKeySize, len(b))
	}
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, errors.Wrap(ErrInvalidPrivateKey, "scalar out of range")
	}

	sk, _ := btcec.PrivKeyFromBytes(b)

	return newPrvKey(sk, opts...), nil
}

func FromBech32(nsec string, opts ...Option) (*PrvKey, error) {
	privateKeyHex, err := nip19.DecodeExpecting(nip19.PrefixPrivateKey, nsec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode nsec")
	}

	return FromHex(privateKeyHex, opts...)
}

func newPrvKey(sk *btcec.PrivateKey, opts ...Option) *PrvKey {
	k := &PrvKey{sk: sk, adapter: DefaultAdapter}
	for _, opt := range opts {
		opt(k)
	}

	return k
}

func (k *PrvKey) Hex() string {
	return hex.EncodeToString(k.sk.Serialize())
}

// EncPubKey is the 33-byte compressed SEC encoding of the public point.
func (k *PrvKey) EncPubKey() string {
	return hex.EncodeToString(k.sk.PubKey().SerializeCompressed())
}

// PubKey is the x-only public key used in events.
func (k *PrvKey) PubKey() string {
	return hex.EncodeToString(schnorr.SerializePubKey(k.sk.PubKey()))
}

func (k *PrvKey) Npub() string {
	npub, err := nip19.EncodePublicKey(k.PubKey())
	if err != nil {
		log.Panic(errors.Wrap(err, "failed to encode npub"))
	}

	return npub
}

func (k *PrvKey) Nsec() string {
	nsec, err := nip19.EncodePrivateKey(k.Hex())
	if err != nil {
		log.Panic(errors.Wrap(err, "failed to encode nsec"))
	}

	return nsec
}

// String never exposes the private scalar.
func (k *PrvKey) String() string {
	return k.Npub()
}

func (k *PrvKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != DigestSize {
		return nil, errors.Errorf("digest must be %d bytes, got %d", DigestSize, len(digest))
	}

	return k.adapter.Sign(digest, k.sk)
}

// SharedSecret is the x-coordinate of sk × pubkey, pubkey being x-only or compressed hex.
func (k *PrvKey) SharedSecret(pubkeyHex string) ([]byte, error) {
	pk, err := ParsePublicKey(pubkeyHex)
	if err != nil {
		return nil, err
	}

	return btcec.GenerateSharedSecret(k.sk, pk), nil
}

func ParsePublicKey(pubkeyHex string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidHex, err.Error())
	}
	var pk *btcec.PublicKey
	switch len(b) {
	case PublicKeySize:
		pk, err = schnorr.ParsePubKey(b)
	case btcec.PubKeyBytesLenCompressed:
		pk, err = btcec.ParsePubKey(b)
	default:
		return nil, errors.Wrapf(ErrInvalidPublicKey, "unexpected length %d", len(b))
	}
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}

	return pk, nil
}

// Verify checks a hex signature over digest with DefaultAdapter.
func Verify(digest []byte, sigHex, pubkeyHex string) (bool, error) {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, errors.Wrap(ErrInvalidHex, "signature: "+err.Error())
	}
	pk, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return false, errors.Wrap(ErrInvalidHex, "public key: "+err.Error())
	}

	return DefaultAdapter.Verify(digest, sig, pk), nil
}

func (schnorrAdapter) Sign(digest []byte, sk *btcec.PrivateKey) ([]byte, error) {
	sig, err := schnorr.Sign(sk, digest)
	if err != nil {
		return nil, errors.Wrap(err, "schnorr sign failed")
	}

	return sig.Serialize(), nil
}

func (schnorrAdapter) Verify(digest, sig, pubkey []byte) bool {
	pk, err := schnorr.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}

	return s.Verify(digest, pk)
}
