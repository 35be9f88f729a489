// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"fmt"
	"testing"
	stdlibtime "time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ice-blockchain/subzero-client/client/fixture"
	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/model"
)

const testDeadline = 10 * stdlibtime.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func helperRelay(t *testing.T, opts ...fixture.Option) *fixture.MockRelay {
	t.Helper()

	relay := fixture.NewMockRelay(opts...)
	t.Cleanup(relay.Close)

	return relay
}

func helperSession(t *testing.T, relay *fixture.MockRelay, opts ...Option) *Session {
	t.Helper()

	return New(&Config{URL: relay.URL(), Timeout: 2 * stdlibtime.Second, WriteTimeout: stdlibtime.Second}, opts...)
}

func helperKey(t *testing.T) *keys.PrvKey {
	t.Helper()

	k, err := keys.Generate()
	require.NoError(t, err)

	return k
}

func helperNote(t *testing.T, k *keys.PrvKey, content string) *model.Event {
	t.Helper()

	if k == nil {
		k = helperKey(t)
	}
	ev, err := model.NewTextNote(content, k)
	require.NoError(t, err)

	return ev
}

func helperNotes(t *testing.T, n int) []*model.Event {
	t.Helper()

	k := helperKey(t)
	notes := make([]*model.Event, n)
	for i := range notes {
		notes[i] = helperNote(t, k, fmt.Sprintf("note #%v", i))
	}

	return notes
}

// helperAwait reads responses until cond matches one and returns it.
func helperAwait(ctx context.Context, t *testing.T, s *Session, cond func(*Response) bool) *Response {
	t.Helper()

	for {
		select {
		case resp := <-s.Responses():
			if cond(resp) {
				return resp
			}
		case <-ctx.Done():
			require.FailNow(t, "response not received", ctx.Err())

			return nil
		}
	}
}

func labelled(label model.EnvelopeType, subID string) func(*Response) bool {
	return func(resp *Response) bool {
		return resp.Label == label && (subID == "" || resp.SubscriptionID == subID)
	}
}
