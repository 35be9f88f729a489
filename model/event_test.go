// SPDX-License-Identifier: ice License 1.0

package model

import (
	"encoding/json"
	"testing"

	combinations "github.com/mxschmitt/golang-combinations"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/nip19"
)

const (
	testPrivateKeyThree = "0000000000000000000000000000000000000000000000000000000000000003"
	testPrivateKeyTwo   = "0000000000000000000000000000000000000000000000000000000000000002"
	testPubKeyThree     = "f9308a019258c31049344f85f89d5229b531c845836f99b08601f113bce036f9"
	testPubKeyTwo       = "c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
	testGoldenID        = "e1adaedd708bff1e420723f7baabd9843f3355238eeb171c67247c606438d832"
	testCreatedAt       = Timestamp(1672531200)
)

func helperKey(t *testing.T, privateKeyHex string) *keys.PrvKey {
	t.Helper()

	k, err := keys.FromHex(privateKeyHex)
	require.NoError(t, err)

	return k
}

func helperGoldenEvent() *Event {
	return &Event{PubKey: testPubKeyThree, CreatedAt: testCreatedAt, Kind: KindTextNote, Tags: Tags{}, Content: "Hello nostr !"}
}

func TestEventSerializeGolden(t *testing.T) {
	t.Parallel()

	ev := helperGoldenEvent()
	serialized, err := ev.Serialize()
	require.NoError(t, err)
	require.Equal(t, `[0,"`+testPubKeyThree+`",1672531200,1,[],"Hello nostr !"]`, string(serialized))

	require.NoError(t, ev.Identify())
	require.Equal(t, testGoldenID, ev.ID)
	note, err := nip19.EncodeNote(ev.ID)
	require.NoError(t, err)
	require.Equal(t, "note1uxk6ahts30l3uss8y0mm427esslnx4fr3m43w8r8y37xqepcmqeqamqnyd", note)

	require.NoError(t, ev.Sign(helperKey(t, testPrivateKeyThree)))
	require.Equal(t, testGoldenID, ev.ID)
	require.Equal(t, testPubKeyThree, ev.PubKey)
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEventSerializeEscaping(t *testing.T) {
	t.Parallel()

	ev := &Event{
		PubKey:    testPubKeyThree,
		CreatedAt: testCreatedAt,
		Kind:      KindTextNote,
		Tags:      Tags{{"p", "ab"}, {"t", `x"y`}},
		Content:   "é\n\t\x01 <>&\\/ 🎉",
	}
	serialized, err := ev.Serialize()
	require.NoError(t, err)
	require.Equal(t, `[0,"`+testPubKeyThree+`",1672531200,1,[["p","ab"],["t","x\"y"]],"é\n\t\u0001 <>&\\/ 🎉"]`, string(serialized))
	require.Equal(t, string(ev.ToNostr().Serialize()), string(serialized))

	require.NoError(t, ev.Identify())
	require.Equal(t, "286770813cc6d772a53636129104849e63d4c33f2d289f81444802634ed35480", ev.ID)
}

func TestEventSerializeMatchesGoNostr(t *testing.T) {
	t.Parallel()

	contents := []string{"", "plain", "quote \" backslash \\", "\b\f\r\x7f", "\x00\x1f", "multi\nline\ttext", "ünïcödé ✓"}
	for _, content := range contents {
		ev := &Event{PubKey: testPubKeyTwo, CreatedAt: 1, Kind: KindTextNote, Tags: Tags{{"e", content}}, Content: content}
		serialized, err := ev.Serialize()
		require.NoError(t, err)
		require.Equalf(t, string(ev.ToNostr().Serialize()), string(serialized), "%q", content)

		require.NoError(t, ev.Identify())
		require.Equal(t, ev.ToNostr().GetID(), ev.ID)
	}
}

func TestEventSerializeErrors(t *testing.T) {
	t.Parallel()

	_, err := (&Event{CreatedAt: 1, Kind: KindTextNote}).Serialize()
	require.ErrorIs(t, err, ErrEmptyEvent)
	_, err = (&Event{PubKey: testPubKeyThree, Kind: KindTextNote}).Serialize()
	require.ErrorIs(t, err, ErrEmptyEvent)
	_, err = (&Event{PubKey: testPubKeyThree, CreatedAt: 1, Kind: KindUnset}).Serialize()
	require.ErrorIs(t, err, ErrEmptyEvent)
	_, err = (&Event{PubKey: testPubKeyThree, CreatedAt: 1, Tags: Tags{{"p"}, {}}}).Serialize()
	require.ErrorIs(t, err, ErrEmptyTag)
	require.ErrorIs(t, (&Event{}).Sign(nil), ErrMissingKey)
}

func TestEventSignVerify(t *testing.T) {
	t.Parallel()

	k := helperKey(t, testPrivateKeyTwo)
	ev := NewEvent(KindTextNote, "signed", Tag{"t", "nostr"})
	require.NoError(t, ev.Sign(k))
	require.True(t, ev.IsSigned())
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ev.ToNostr().CheckSignature()
	require.NoError(t, err)
	require.True(t, ok)

	unsigned := NewEvent(KindTextNote, "unsigned")
	unsigned.PubKey = k.PubKey()
	require.NoError(t, unsigned.Identify())
	ok, err = unsigned.Verify()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEventVerifyForeignSignature(t *testing.T) {
	t.Parallel()

	sk := nostr.GeneratePrivateKey()
	foreign := nostr.Event{CreatedAt: nostr.Now(), Kind: nostr.KindTextNote, Tags: nostr.Tags{{"p", testPubKeyThree}}, Content: "from go-nostr"}
	require.NoError(t, foreign.Sign(sk))
	data, err := foreign.MarshalJSON()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEventMutationDetected(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(ev *Event){
		"pubkey":     func(ev *Event) { ev.PubKey = testPubKeyThree },
		"created_at": func(ev *Event) { ev.CreatedAt++ },
		"kind":       func(ev *Event) { ev.Kind = KindRecommendServer },
		"tags":       func(ev *Event) { ev.Tags = append(ev.Tags, Tag{"t", "mutated"}) },
		"content":    func(ev *Event) { ev.Content += "!" },
	}
	fields := make([]string, 0, len(mutations))
	for field := range mutations {
		fields = append(fields, field)
	}
	k := helperKey(t, testPrivateKeyTwo)
	for _, subset := range combinations.All(fields) {
		ev := NewEvent(KindTextNote, "original")
		require.NoError(t, ev.Sign(k))
		for _, field := range subset {
			mutations[field](ev)
		}

		ok, err := ev.Verify()
		require.ErrorIsf(t, err, ErrIntegrity, "%v", subset)
		require.False(t, ok)

		require.NoError(t, ev.Identify())
		ok, err = ev.Verify()
		require.NoErrorf(t, err, "%v", subset)
		require.Falsef(t, ok, "%v", subset)
	}
}

func TestEventForgedID(t *testing.T) {
	t.Parallel()

	ev := helperGoldenEvent()
	require.NoError(t, ev.Sign(helperKey(t, testPrivateKeyThree)))
	ev.ID = "0000000000000000000000000000000000000000000000000000000000000000"
	ok, err := ev.Verify()
	require.ErrorIs(t, err, ErrIntegrity)
	require.False(t, ok)
}

func TestEventTamperedSignature(t *testing.T) {
	t.Parallel()

	ev := helperGoldenEvent()
	require.NoError(t, ev.Sign(helperKey(t, testPrivateKeyThree)))
	sig := []byte(ev.Sig)
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	ev.Sig = string(sig)
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.False(t, ok)

	ev.Sig = "zz"
	_, err = ev.Verify()
	require.ErrorIs(t, err, ErrInvalidHex)
}

func TestEventJSON(t *testing.T) {
	t.Parallel()

	ev := helperGoldenEvent()
	ev.Tags = Tags{{"p", testPubKeyTwo, "wss://relay.example.com"}}
	ev.Content = "<b>&amp;</b>"
	require.NoError(t, ev.Sign(helperKey(t, testPrivateKeyThree)))

	data, err := ev.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"content":"<b>&amp;</b>"`)

	var theirs nostr.Event
	require.NoError(t, json.Unmarshal(data, &theirs))
	require.Equal(t, ev.ID, theirs.ID)
	require.Equal(t, ev.Sig, theirs.Sig)
	require.Equal(t, ev.Tags, theirs.Tags)
	require.Equal(t, ev.Content, theirs.Content)

	decoded := Event{Kind: KindUnset}
	require.NoError(t, decoded.UnmarshalJSON(data))
	require.Equal(t, ev, &decoded)

	withUnknown := `{"id":"` + ev.ID + `","unknown":{"nested":[1,2]},"kind":1,"pubkey":"` + ev.PubKey + `","created_at":1672531200,"tags":[],"content":"x"}`
	var partial Event
	require.NoError(t, partial.UnmarshalJSON([]byte(withUnknown)))
	require.Equal(t, "x", partial.Content)
	require.Empty(t, partial.Sig)

	require.ErrorIs(t, new(Event).UnmarshalJSON([]byte(`{"id":"XYZ"}`)), ErrInvalidHex)
	require.ErrorIs(t, new(Event).UnmarshalJSON([]byte(`{"pubkey":"`+testPubKeyThree[:62]+`"}`)), ErrInvalidHex)
	require.Error(t, new(Event).UnmarshalJSON([]byte(`{"tags":"nope"}`)))
}

func TestEventLoad(t *testing.T) {
	t.Parallel()

	t.Run("Recognized", func(t *testing.T) {
		ev, err := LoadEvent(map[string]any{
			"pubkey":     testPubKeyThree,
			"created_at": float64(testCreatedAt),
			"kind":       float64(KindTextNote),
			"tags":       []any{},
			"content":    "Hello nostr !",
			"relay":      "wss://ignored",
		})
		require.NoError(t, err)
		require.NoError(t, ev.Identify())
		require.Equal(t, testGoldenID, ev.ID)
	})
	t.Run("MissingKind", func(t *testing.T) {
		ev, err := LoadEvent(map[string]any{"pubkey": testPubKeyThree, "created_at": 1})
		require.NoError(t, err)
		require.Equal(t, KindUnset, ev.Kind)
		require.ErrorIs(t, ev.Identify(), ErrEmptyEvent)
	})
	t.Run("Tags", func(t *testing.T) {
		ev := NewEvent(KindTextNote, "keep", Tag{"t", "a"}, Tag{"t", "b"})
		require.NoError(t, ev.Load(map[string]any{"tags": []any{[]any{"p", testPubKeyTwo}}}))
		require.Equal(t, Tags{{"p", testPubKeyTwo}}, ev.Tags)
		require.Equal(t, "keep", ev.Content)
	})
	t.Run("InvalidHex", func(t *testing.T) {
		for _, fields := range []map[string]any{
			{"id": "abc"},
			{"pubkey": testPubKeyThree + "00"},
			{"sig": "not-a-signature"},
			{"pubkey": "F9308A019258C31049344F85F89D5229B531C845836F99B08601F113BCE036F9"},
		} {
			ev := NewEvent(KindTextNote, "untouched")
			require.ErrorIsf(t, ev.Load(fields), ErrInvalidHex, "%v", fields)
			require.Equal(t, "untouched", ev.Content)
			require.Empty(t, ev.PubKey)
		}
	})
	t.Run("WrongType", func(t *testing.T) {
		_, err := LoadEvent(map[string]any{"content": []any{1, 2}})
		require.Error(t, err)
	})
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	k := helperKey(t, testPrivateKeyThree)
	note, err := NewTextNote("hi", k)
	require.NoError(t, err)
	require.NoError(t, note.Validate())

	badMarker := NewEvent(KindTextNote, "hi", Tag{"e", testGoldenID, "", "quote"})
	require.NoError(t, badMarker.Sign(k))
	require.ErrorIs(t, badMarker.Validate(), ErrWrongEventParams)

	profile := NewEvent(KindSetMetadata, "not json")
	require.NoError(t, profile.Sign(k))
	require.ErrorIs(t, profile.Validate(), ErrWrongEventParams)

	dm := NewEvent(KindEncryptedDirectMessage, "plain text", Tag{"p", testPubKeyTwo})
	require.NoError(t, dm.Sign(k))
	require.ErrorIs(t, dm.Validate(), ErrWrongEventParams)

	require.ErrorIs(t, NewEvent(KindTextNote, "unsigned").Validate(), ErrInvalidHex)
}
