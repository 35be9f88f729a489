// SPDX-License-Identifier: ice License 1.0

package model

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/nip04"
)

const (
	TagMarkerMention = "mention"
)

var (
	ErrWrongEventParams = errors.New("wrong event params")
)

// Validate checks that a signed event is well-formed for its kind before it goes on the wire.
func (e *Event) Validate() error {
	if e.Kind < 0 || e.Kind > maxKind {
		return errors.Wrapf(ErrWrongEventParams, "wrong kind value %v", e.Kind)
	}
	if err := checkHex("id", e.ID, idHexSize); err != nil {
		return err
	}
	if err := checkHex("pubkey", e.PubKey, idHexSize); err != nil {
		return err
	}
	if err := checkHex("sig", e.Sig, sigHexSize); err != nil {
		return err
	}
	for i, tag := range e.Tags {
		if len(tag) == 0 {
			return errors.Wrapf(ErrEmptyTag, "tag #%d", i)
		}
	}
	switch e.Kind {
	case KindSetMetadata:
		return validateKindProfileMetadataEvent(e)
	case KindTextNote:
		return validateKindTextNoteEvent(e)
	case KindContactList:
		for _, tag := range e.PTags() {
			if len(tag) < 2 || tag[1] == "" {
				return errors.Wrapf(ErrWrongEventParams, "nip-02 params, no required pubkey %v", e.ID)
			}
		}
	case KindEncryptedDirectMessage:
		if !nip04.IsEnvelope(e.Content) {
			return errors.Wrapf(ErrWrongEventParams, "nip-04: content is not an encrypted payload: %v", e.ID)
		}
		if len(e.PTags()) == 0 {
			return errors.Wrapf(ErrWrongEventParams, "nip-04: no recipient: %v", e.ID)
		}
	case KindReaction:
		return validateKindReactionEvent(e)
	}

	return nil
}

func validateKindProfileMetadataEvent(e *Event) error {
	var parsedContent map[string]any
	if err := json.Unmarshal([]byte(e.Content), &parsedContent); err != nil || parsedContent == nil {
		return errors.Wrapf(ErrWrongEventParams, "nip-01: content field should be a stringified json object: %v", e.ID)
	}

	return nil
}

func validateKindTextNoteEvent(e *Event) error {
	for _, tag := range e.ETags() {
		if len(tag) < 2 {
			return errors.Wrapf(ErrWrongEventParams, "nip-10: no tag required param: %v", e.ID)
		}
		if len(tag) >= 4 && tag[3] != TagMarkerRoot && tag[3] != TagMarkerReply && tag[3] != TagMarkerMention {
			return errors.Wrapf(ErrWrongEventParams, "nip-10: wrong tag marker param %q: %v", tag[3], e.ID)
		}
	}
	for _, tag := range e.PTags() {
		if len(tag) == 1 {
			return errors.Wrapf(ErrWrongEventParams, "nip-10: p tag doesn't contain any pubkey: %v", e.ID)
		}
	}

	return nil
}

func validateKindReactionEvent(e *Event) error {
	eTags, pTags := e.ETags(), e.PTags()
	if len(eTags) == 0 || eTags[len(eTags)-1].Value() == "" {
		return errors.Wrapf(ErrWrongEventParams, "nip-25, wrong e tag value: %v", e.ID)
	}
	if len(pTags) == 0 || pTags[len(pTags)-1].Value() == "" {
		return errors.Wrapf(ErrWrongEventParams, "nip-25, wrong p tag value: %v", e.ID)
	}

	return nil
}
