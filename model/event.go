// SPDX-License-Identifier: ice License 1.0

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"

	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/nip13"
)

type (
	Event struct {
		ID        string    `json:"id"`
		PubKey    string    `json:"pubkey"`
		CreatedAt Timestamp `json:"created_at"`
		Kind      Kind      `json:"kind"`
		Tags      Tags      `json:"tags"`
		Content   string    `json:"content"`
		Sig       string    `json:"sig"`
	}
)

const (
	idHexSize  = 2 * sha256.Size
	sigHexSize = 2 * keys.SignatureSize
	hexDigits  = "0123456789abcdef"
)

// NewEvent is created now, with the given kind, and not signed.
func NewEvent(kind Kind, content string, tags ...Tag) *Event {
	return &Event{
		CreatedAt: nostr.Now(),
		Kind:      kind,
		Tags:      append(make(Tags, 0, len(tags)), tags...),
		Content:   content,
	}
}

func (e *Event) IsSigned() bool {
	return e.Sig != ""
}

// Serialize renders the canonical [0,pubkey,created_at,kind,tags,content] form the id is the sha256 of.
func (e *Event) Serialize() ([]byte, error) {
	head, err := e.appendHeader(make([]byte, 0, 128+len(e.Content)))
	if err != nil {
		return nil, err
	}

	return append(appendQuoted(append(head, ']', ','), e.Content), ']'), nil
}

// appendHeader writes everything up to the last tag, leaving the tags array open.
func (e *Event) appendHeader(dst []byte) ([]byte, error) {
	if e.PubKey == "" || e.CreatedAt == 0 || e.Kind == KindUnset {
		return nil, errors.Wrapf(ErrEmptyEvent, "pubkey, created_at and kind are mandatory: pubkey=%q created_at=%v kind=%v", e.PubKey, e.CreatedAt, e.Kind)
	}
	dst = append(dst, `[0,`...)
	dst = appendQuoted(dst, e.PubKey)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.CreatedAt), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.Kind), 10)
	dst = append(dst, ',', '[')
	for i, tag := range e.Tags {
		if len(tag) == 0 {
			return nil, errors.Wrapf(ErrEmptyTag, "tag #%d", i)
		}
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, value := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendQuoted(dst, value)
		}
		dst = append(dst, ']')
	}

	return dst, nil
}

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				dst = append(dst, c)
			}
		}
	}

	return append(dst, '"')
}

func (e *Event) digest() ([]byte, error) {
	serialized, err := e.Serialize()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(serialized)

	return sum[:], nil
}

// Identify recomputes and stores the id.
func (e *Event) Identify() error {
	digest, err := e.digest()
	if err != nil {
		return errors.Wrap(err, "failed to identify event")
	}
	e.ID = hex.EncodeToString(digest)

	return nil
}

// Sign binds the event to k: pubkey, id and signature are all overwritten.
func (e *Event) Sign(k *keys.PrvKey) error {
	if k == nil {
		return ErrMissingKey
	}
	if e.Tags == nil {
		e.Tags = make(Tags, 0)
	}
	e.PubKey = k.PubKey()
	digest, err := e.digest()
	if err != nil {
		return errors.Wrap(err, "failed to sign event")
	}
	sig, err := k.Sign(digest)
	if err != nil {
		return errors.Wrap(err, "failed to sign event")
	}
	e.ID, e.Sig = hex.EncodeToString(digest), hex.EncodeToString(sig)

	return nil
}

// Verify fails with ErrIntegrity when the stored id does not hash the content, and reports signature validity otherwise.
func (e *Event) Verify() (bool, error) {
	digest, err := e.digest()
	if err != nil {
		return false, errors.Wrap(err, "failed to verify event")
	}
	if id := hex.EncodeToString(digest); id != e.ID {
		return false, errors.Wrapf(ErrIntegrity, "id %q does not match content hash %q", e.ID, id)
	}
	if !e.IsSigned() {
		return false, nil
	}
	if err = checkHex("sig", e.Sig, sigHexSize); err != nil {
		return false, err
	}

	return keys.Verify(digest, e.Sig, e.PubKey)
}

func (e *Event) CheckPoW(minLeadingZeroBits int) error {
	if minLeadingZeroBits == 0 {
		return nil
	}
	if err := nip13.Check(e.ID, minLeadingZeroBits); err != nil {
		log.Printf("WARN: difficulty < %v, id:%v", minLeadingZeroBits, e.ID)

		return errors.Wrapf(err, "event %v", e.ID)
	}

	return nil
}

// ToNostr copies the event into the go-nostr representation.
func (e *Event) ToNostr() *nostr.Event {
	return &nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Tags:      e.Tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

func (e *Event) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return err.Error()
	}

	return string(b)
}
