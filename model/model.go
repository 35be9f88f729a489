// SPDX-License-Identifier: ice License 1.0

package model

import (
	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"

	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/nip04"
)

type (
	TagMap       = nostr.TagMap
	Tag          = nostr.Tag
	Tags         = nostr.Tags
	Timestamp    = nostr.Timestamp
	Kind         = int
	Subscription struct {
		ID      string
		Filters Filters
	}
)

const (
	KindUnset                  Kind = -1
	KindSetMetadata            Kind = nostr.KindProfileMetadata
	KindTextNote               Kind = nostr.KindTextNote
	KindRecommendServer        Kind = nostr.KindRecommendServer
	KindContactList            Kind = nostr.KindFollowList
	KindEncryptedDirectMessage Kind = 4
	KindDeletion               Kind = nostr.KindDeletion
	KindRepost                 Kind = nostr.KindRepost
	KindReaction               Kind = nostr.KindReaction

	maxKind = 65535
)

const (
	TagPubKey = "p"
	TagEvent  = "e"
	TagNonce  = "nonce"

	TagMarkerRoot  = "root"
	TagMarkerReply = "reply"
)

var (
	ErrEmptyTag    = errors.New("empty tag")
	ErrEmptyEvent  = errors.New("empty event")
	ErrInvalidHex  = errors.New("invalid hex")
	ErrIntegrity   = errors.New("event integrity violated")
	ErrOrphanEvent = errors.New("event has no public key")
	ErrEventSigned = errors.New("event is already signed")
	ErrNoRecipient = errors.New("no recipient")
	ErrNip05Format = errors.New("invalid nip05 identifier")
	ErrMissingKey  = errors.New("private key required")
	ErrWrongKind   = errors.New("wrong event kind")

	ErrNip04Encryption  = nip04.ErrNip04Encryption
	ErrBase64Processing = nip04.ErrBase64Processing
	ErrInvalidPublicKey = keys.ErrInvalidPublicKey
)

func isHex(s string, size int) bool {
	if len(s) != size {
		return false
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

func checkHex(name, value string, size int) error {
	if !isHex(value, size) {
		return errors.Wrapf(ErrInvalidHex, "%v must be %d lowercase hex characters, got %q", name, size, value)
	}

	return nil
}
