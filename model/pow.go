// SPDX-License-Identifier: ice License 1.0

package model

import (
	"context"
	"log"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ice-blockchain/subzero-client/nip13"
)

// PoWWorkers bounds the goroutines SetPoWTag mines with, 0 meaning GOMAXPROCS.
var PoWWorkers = 0

// SetPoWTag appends ["nonce", n, difficulty] so that the id has at least difficulty leading zero bits, then re-identifies.
// The event is left untouched when ctx ends first.
func (e *Event) SetPoWTag(ctx context.Context, difficulty int) (Tag, error) {
	if e.IsSigned() {
		return nil, errors.Wrap(ErrEventSigned, "can't mine a signed event")
	}
	if e.PubKey == "" {
		return nil, errors.Wrap(ErrOrphanEvent, "proof of work commits to the public key")
	}
	head, err := e.appendHeader(make([]byte, 0, 256+len(e.Content)))
	if err != nil {
		return nil, err
	}
	if len(e.Tags) > 0 {
		head = append(head, ',')
	}
	target := strconv.Itoa(difficulty)
	prefix := append(head, `["nonce","`...)
	suffix := append(appendQuoted([]byte(`","`+target+`"]],`), e.Content), ']')
	nonce, err := nip13.DoWork(ctx, prefix, suffix, difficulty, PoWWorkers)
	if err != nil {
		log.Printf("WARN: can't do mining by the provided difficulty:%v: %v", difficulty, err)

		return nil, errors.Wrapf(err, "failed to mine difficulty %v", difficulty)
	}
	tag := Tag{TagNonce, strconv.FormatUint(nonce, 10), target}
	e.Tags = append(e.Tags, tag)
	if err = e.Identify(); err != nil {
		e.Tags = e.Tags[:len(e.Tags)-1]

		return nil, err
	}

	return tag, nil
}
