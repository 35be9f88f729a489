// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"

	"github.com/cockroachdb/errors"
)

func newReceipt(eventID string) *Receipt {
	return &Receipt{EventID: eventID, done: make(chan struct{})}
}

func (r *Receipt) resolve(response *Response, err error) {
	r.once.Do(func() {
		r.response, r.err = response, err
		close(r.done)
	})
}

// Wait blocks until the relay acknowledged the event. A rejection is not an error, check Response.Accepted.
func (r *Receipt) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-r.done:
		return r.response, r.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "no answer for event %v", r.EventID)
	}
}

// Done is closed once the receipt is resolved.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}
