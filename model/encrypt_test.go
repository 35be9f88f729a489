// SPDX-License-Identifier: ice License 1.0

package model

import (
	"testing"

	gonip04 "github.com/nbd-wtf/go-nostr/nip04"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/subzero-client/keys"
)

func helperRandomKeys(t *testing.T, n int) []*keys.PrvKey {
	t.Helper()

	result := make([]*keys.PrvKey, n)
	for i := range result {
		k, err := keys.Generate()
		require.NoError(t, err)
		result[i] = k
	}

	return result
}

func TestEncryptSingleRecipient(t *testing.T) {
	t.Parallel()

	sender, recipient := helperKey(t, testPrivateKeyThree), helperKey(t, testPrivateKeyTwo)
	ev := NewEvent(KindTextNote, "hello bob")
	ciphertext, err := ev.Encrypt(sender, recipient.PubKey())
	require.NoError(t, err)
	require.Equal(t, ciphertext, ev.Content)
	require.Equal(t, KindEncryptedDirectMessage, ev.Kind)
	require.Equal(t, sender.PubKey(), ev.PubKey)
	require.Equal(t, Tags{{"p", recipient.PubKey()}}, ev.Tags)

	plaintext, err := ev.Decrypt(recipient)
	require.NoError(t, err)
	require.Equal(t, "hello bob", plaintext)

	secret, err := gonip04.ComputeSharedSecret(sender.PubKey(), recipient.Hex())
	require.NoError(t, err)
	theirs, err := gonip04.Decrypt(ev.Content, secret)
	require.NoError(t, err)
	require.Equal(t, "hello bob", theirs)

	_, err = ev.Decrypt(helperRandomKeys(t, 1)[0])
	require.ErrorIs(t, err, ErrEmptyTag)

	thief := helperRandomKeys(t, 1)[0]
	ev.Tags = append(ev.Tags, Tag{"p", thief.PubKey()})
	_, err = ev.Decrypt(thief)
	require.ErrorIs(t, err, ErrNip04Encryption)
}

func TestEncryptExistingMention(t *testing.T) {
	t.Parallel()

	sender, recipient := helperKey(t, testPrivateKeyThree), helperKey(t, testPrivateKeyTwo)
	ev := NewEvent(KindEncryptedDirectMessage, "again", Tag{"p", recipient.PubKey()})
	_, err := ev.Encrypt(sender, recipient.PubKey())
	require.NoError(t, err)
	require.Len(t, ev.PTags(), 1)
}

func TestEncryptFromGoNostr(t *testing.T) {
	t.Parallel()

	sender, recipient := helperKey(t, testPrivateKeyThree), helperKey(t, testPrivateKeyTwo)
	secret, err := gonip04.ComputeSharedSecret(recipient.PubKey(), sender.Hex())
	require.NoError(t, err)
	content, err := gonip04.Encrypt("from go-nostr", secret)
	require.NoError(t, err)

	ev := NewEvent(KindEncryptedDirectMessage, content, Tag{"p", recipient.PubKey()})
	require.NoError(t, ev.Sign(sender))
	plaintext, err := ev.Decrypt(recipient)
	require.NoError(t, err)
	require.Equal(t, "from go-nostr", plaintext)
}

func TestEncryptManyRecipients(t *testing.T) {
	t.Parallel()

	sender := helperKey(t, testPrivateKeyThree)
	recipients := helperRandomKeys(t, 3)
	pubkeys := []string{recipients[0].PubKey(), recipients[1].PubKey(), recipients[2].PubKey()}
	ev := NewEvent(KindTextNote, "hello everyone", Tag{"p", pubkeys[1]}, Tag{"t", "group"})
	ciphertext, err := ev.Encrypt(sender, pubkeys...)
	require.NoError(t, err)
	require.Len(t, ev.PTags(), 3)
	require.Len(t, ev.Tags, 4)
	for i, tag := range ev.PTags() {
		require.Len(t, tag, 4)
		require.Equal(t, pubkeys[i], tag[1])
		require.Empty(t, tag[2])
		require.NotEmpty(t, tag[3])
	}
	for _, recipient := range recipients {
		plaintext, dErr := ev.Decrypt(recipient)
		require.NoError(t, dErr)
		require.Equal(t, "hello everyone", plaintext)
	}
	require.Equal(t, ciphertext, ev.Content)

	_, err = ev.Decrypt(sender)
	require.ErrorIs(t, err, ErrEmptyTag)

	require.NoError(t, ev.Sign(sender))
	require.NoError(t, ev.Validate())
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEncryptErrors(t *testing.T) {
	t.Parallel()

	sender := helperKey(t, testPrivateKeyThree)
	ev := NewEvent(KindTextNote, "content")
	_, err := ev.Encrypt(sender)
	require.ErrorIs(t, err, ErrNoRecipient)
	_, err = ev.Encrypt(nil, testPubKeyTwo)
	require.ErrorIs(t, err, ErrMissingKey)
	_, err = ev.Encrypt(sender, "abcd")
	require.ErrorIs(t, err, ErrInvalidHex)
	require.Equal(t, "content", ev.Content)
	require.Equal(t, KindTextNote, ev.Kind)

	signed, err := NewTextNote("signed", sender)
	require.NoError(t, err)
	_, err = signed.Encrypt(sender, testPubKeyTwo)
	require.ErrorIs(t, err, ErrEventSigned)
}

func TestNewEncryptedMessage(t *testing.T) {
	t.Parallel()

	sender, recipient := helperKey(t, testPrivateKeyThree), helperKey(t, testPrivateKeyTwo)
	ev, err := NewEncryptedMessage("secret", sender, recipient.PubKey())
	require.NoError(t, err)
	ok, err := ev.Verify()
	require.NoError(t, err)
	require.True(t, ok)
	plaintext, err := ev.Decrypt(recipient)
	require.NoError(t, err)
	require.Equal(t, "secret", plaintext)

	_, err = NewEncryptedMessage("secret", sender)
	require.ErrorIs(t, err, ErrNoRecipient)
}
