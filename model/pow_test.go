// SPDX-License-Identifier: ice License 1.0

package model

import (
	"context"
	"strconv"
	"testing"
	"time"

	gonip13 "github.com/nbd-wtf/go-nostr/nip13"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/subzero-client/nip13"
)

func TestSetPoWTag(t *testing.T) {
	t.Parallel()

	k := helperKey(t, testPrivateKeyThree)
	for _, difficulty := range []int{0, 4, 8} {
		t.Run(strconv.Itoa(difficulty), func(t *testing.T) {
			t.Parallel()

			ev := NewEvent(KindTextNote, "mined", Tag{"t", "pow"})
			ev.PubKey = k.PubKey()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			tag, err := ev.SetPoWTag(ctx, difficulty)
			require.NoError(t, err)
			require.Len(t, tag, 3)
			require.Equal(t, TagNonce, tag.Key())
			require.Equal(t, strconv.Itoa(difficulty), tag[2])
			require.Equal(t, tag, ev.Tags[len(ev.Tags)-1])
			require.Len(t, ev.Tags, 2)
			if difficulty == 0 {
				require.Equal(t, Tag{"nonce", "0", "0"}, tag)
			}

			require.GreaterOrEqual(t, gonip13.Difficulty(ev.ID), difficulty)
			require.NoError(t, ev.CheckPoW(difficulty))
			byGoNostr := ev.ToNostr().GetID()
			require.Equal(t, byGoNostr, ev.ID)

			require.NoError(t, ev.Sign(k))
			ok, err := ev.Verify()
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestSetPoWTagErrors(t *testing.T) {
	t.Parallel()

	orphan := NewEvent(KindTextNote, "orphan")
	_, err := orphan.SetPoWTag(context.Background(), 4)
	require.ErrorIs(t, err, ErrOrphanEvent)

	signed, err := NewTextNote("signed", helperKey(t, testPrivateKeyThree))
	require.NoError(t, err)
	_, err = signed.SetPoWTag(context.Background(), 4)
	require.ErrorIs(t, err, ErrEventSigned)

	cancelled := NewEvent(KindTextNote, "too hard")
	cancelled.PubKey = testPubKeyThree
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = cancelled.SetPoWTag(ctx, 200)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, cancelled.Tags)
	require.Empty(t, cancelled.ID)
}

func TestCheckPoW(t *testing.T) {
	t.Parallel()

	ev := helperGoldenEvent()
	require.NoError(t, ev.Identify())
	require.NoError(t, ev.CheckPoW(0))
	require.ErrorIs(t, ev.CheckPoW(nip13.Difficulty([]byte{0xe1})+1), nip13.ErrDifficultyTooLow)
}
