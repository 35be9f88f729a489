// SPDX-License-Identifier: ice License 1.0

package model

import (
	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/keys"
)

func NewSetMetadata(name, about, picture string, k *keys.PrvKey) (*Event, error) {
	content, err := marshalContent(&ProfileMetadataContent{Name: name, About: about, Picture: picture})
	if err != nil {
		return nil, err
	}

	return signed(NewEvent(KindSetMetadata, content), k)
}

func NewTextNote(content string, k *keys.PrvKey, tags ...Tag) (*Event, error) {
	return signed(NewEvent(KindTextNote, content, tags...), k)
}

// NewRecommendedServer advertises a relay url to followers.
func NewRecommendedServer(relayURL string, k *keys.PrvKey) (*Event, error) {
	return signed(NewEvent(KindRecommendServer, relayURL), k)
}

// NewEncryptedMessage encrypts content to every recipient (see Event.Encrypt) and signs the result.
func NewEncryptedMessage(content string, k *keys.PrvKey, recipients ...string) (*Event, error) {
	ev := NewEvent(KindEncryptedDirectMessage, content)
	if _, err := ev.Encrypt(k, recipients...); err != nil {
		return nil, errors.Wrap(err, "failed to build encrypted message")
	}

	return signed(ev, k)
}

func signed(ev *Event, k *keys.PrvKey) (*Event, error) {
	if k == nil {
		return nil, ErrMissingKey
	}
	if err := ev.Sign(k); err != nil {
		return nil, err
	}

	return ev, nil
}
