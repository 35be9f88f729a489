// SPDX-License-Identifier: ice License 1.0

package nip19

import (
	"encoding/hex"

	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/bech32"
)

const (
	PrefixPublicKey  = "npub"
	PrefixPrivateKey = "nsec"
	PrefixNote       = "note"
)

var (
	ErrBech32Decode = bech32.ErrBech32Decode
	ErrInvalidHex   = errors.New("invalid hex payload")
)

func EncodePublicKey(pubkeyHex string) (string, error) {
	return encode(PrefixPublicKey, pubkeyHex)
}

func EncodePrivateKey(privateKeyHex string) (string, error) {
	return encode(PrefixPrivateKey, privateKeyHex)
}

func EncodeNote(eventIDHex string) (string, error) {
	return encode(PrefixNote, eventIDHex)
}

// Decode returns the prefix and the hex-encoded payload of a nostr bech32 string.
func Decode(b32 string) (prefix, value string, err error) {
	prefix, payload, err := bech32.Decode(b32)
	if err != nil {
		return "", "", err
	}
	switch prefix {
	case PrefixPublicKey, PrefixPrivateKey, PrefixNote:
		if len(payload) != 32 {
			return "", "", errors.Wrapf(ErrBech32Decode, "%v payload must be 32 bytes, got %d", prefix, len(payload))
		}
	}

	return prefix, hex.EncodeToString(payload), nil
}

// DecodeExpecting decodes b32 and rejects any prefix other than the expected one.
func DecodeExpecting(expectedPrefix, b32 string) (string, error) {
	prefix, value, err := Decode(b32)
	if err != nil {
		return "", err
	}
	if prefix != expectedPrefix {
		return "", errors.Wrapf(ErrBech32Decode, "expected %v, got %v", expectedPrefix, prefix)
	}

	return value, nil
}

func encode(prefix, hexPayload string) (string, error) {
	payload, err := hex.DecodeString(hexPayload)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidHex, "%v: %v", prefix, err)
	}
	if len(payload) != 32 {
		return "", errors.Wrapf(ErrInvalidHex, "%v payload must be 32 bytes, got %d", prefix, len(payload))
	}

	encoded, err := bech32.Encode(prefix, payload)

	return encoded, errors.Wrapf(err, "failed to encode %v", prefix)
}
