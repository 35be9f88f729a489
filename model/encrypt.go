// SPDX-License-Identifier: ice License 1.0

package model

import (
	"io"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/nip04"
)

// Encrypt turns the event into a kind 4 direct message from k to pubkeys.
// A single recipient gets plain NIP-04 under the pairwise secret. Several recipients share one ciphertext under a random
// content key, wrapped for each of them in ["p", pubkey, "", wrapped].
func (e *Event) Encrypt(k *keys.PrvKey, pubkeys ...string) (string, error) {
	if k == nil {
		return "", ErrMissingKey
	}
	if e.IsSigned() {
		return "", errors.Wrap(ErrEventSigned, "can't encrypt a signed event")
	}
	if len(pubkeys) == 0 {
		return "", errors.Wrap(ErrNoRecipient, "at least one recipient public key is required")
	}
	for _, pk := range pubkeys {
		if err := checkHex("recipient", pk, idHexSize); err != nil {
			return "", err
		}
	}
	var (
		contentKey []byte
		tags       Tags
		err        error
	)
	if len(pubkeys) == 1 {
		if contentKey, err = k.SharedSecret(pubkeys[0]); err != nil {
			return "", errors.Wrapf(err, "recipient %v", pubkeys[0])
		}
		tags = e.Tags
		if !e.mentions(pubkeys[0]) {
			tags = append(slices.Clip(tags), Tag{TagPubKey, pubkeys[0]})
		}
	} else {
		if contentKey, err = newContentKey(); err != nil {
			return "", err
		}
		tags = make(Tags, 0, len(e.Tags)+len(pubkeys))
		for _, tag := range e.Tags {
			if tag.Key() != TagPubKey || len(tag) < 2 || !slices.Contains(pubkeys, tag[1]) {
				tags = append(tags, tag)
			}
		}
		for _, pk := range pubkeys {
			secret, sErr := k.SharedSecret(pk)
			if sErr != nil {
				return "", errors.Wrapf(sErr, "recipient %v", pk)
			}
			wrapped, wErr := nip04.EncryptBytes(contentKey, secret)
			if wErr != nil {
				return "", errors.Wrapf(wErr, "failed to wrap content key for %v", pk)
			}
			tags = append(tags, Tag{TagPubKey, pk, "", wrapped})
		}
	}
	ciphertext, err := nip04.Encrypt(e.Content, contentKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to encrypt content")
	}
	e.PubKey, e.Kind, e.Tags, e.Content, e.ID = k.PubKey(), KindEncryptedDirectMessage, tags, ciphertext, ""

	return ciphertext, nil
}

// Decrypt recovers the content of a direct message addressed to k.
func (e *Event) Decrypt(k *keys.PrvKey) (string, error) {
	if k == nil {
		return "", ErrMissingKey
	}
	self := k.PubKey()
	var tag Tag
	for _, candidate := range e.PTags() {
		if len(candidate) >= 2 && candidate[1] == self {
			tag = candidate

			break
		}
	}
	if tag == nil {
		return "", errors.Wrapf(ErrEmptyTag, "%v not mentioned in event tags", self)
	}
	key, err := k.SharedSecret(e.PubKey)
	if err != nil {
		return "", errors.Wrapf(err, "sender %v", e.PubKey)
	}
	if len(tag) >= 4 && tag[3] != "" {
		if key, err = nip04.DecryptBytes(tag[3], key); err != nil {
			return "", errors.Wrap(err, "failed to unwrap content key")
		}
		if len(key) != nip04.KeySize {
			return "", errors.Wrapf(ErrNip04Encryption, "content key must be %d bytes, got %d", nip04.KeySize, len(key))
		}
	}

	return nip04.Decrypt(e.Content, key)
}

func (e *Event) mentions(pubkey string) bool {
	for _, tag := range e.PTags() {
		if len(tag) >= 2 && tag[1] == pubkey {
			return true
		}
	}

	return false
}

func newContentKey() ([]byte, error) {
	key := make([]byte, nip04.KeySize)
	if _, err := io.ReadFull(nip04.Rand, key); err != nil {
		return nil, errors.Wrap(err, "failed to generate content key")
	}

	return key, nil
}
