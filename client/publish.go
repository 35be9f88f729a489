// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"log"
	stdlibtime "time"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/ws"
	"github.com/hashicorp/go-multierror"

	"github.com/ice-blockchain/subzero-client/model"
)

// Publish sends ev over a dedicated connection and returns the relay's answer to it: the OK frame for ev,
// or a NOTICE if the relay complains first.
func Publish(ctx context.Context, url string, ev *model.Event, timeout stdlibtime.Duration) (resp *Response, err error) {
	if ev == nil || !ev.IsSigned() {
		return nil, ErrUnsignedEvent
	}
	data, err := (&model.EventEnvelope{Event: ev}).MarshalJSON()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode event %v", ev.ID)
	}
	cfg := (&Config{URL: url, Timeout: timeout, WriteTimeout: timeout}).Defaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	conn, err := dial(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierror.Append(err, conn.Close()).ErrorOrNil()
	}()
	stopAfter := context.AfterFunc(ctx, func() {
		_ = conn.Close() //nolint:errcheck // Unblocks the read below.
	})
	defer stopAfter()
	if err = conn.WriteMessage(int(ws.OpText), data); err != nil {
		return nil, errors.Wrapf(err, "failed to send event %v", ev.ID)
	}
	for {
		messageType, frame, rErr := conn.ReadMessage()
		if rErr != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrapf(ctx.Err(), "no answer for event %v from %v", ev.ID, url)
			}

			return nil, errors.Wrapf(rErr, "no answer for event %v from %v", ev.ID, url)
		}
		if ws.OpCode(messageType) != ws.OpText {
			continue
		}
		msg, pErr := model.ParseRelayMessage(frame)
		if pErr != nil {
			log.Printf("WARN: dropping frame from %v: %v", url, pErr)

			continue
		}
		if (msg.Label == model.EnvelopeTypeOK && msg.EventID == ev.ID) || msg.Label == model.EnvelopeTypeNotice {
			return msg, nil
		}
	}
}
