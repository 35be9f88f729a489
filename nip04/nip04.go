// SPDX-License-Identifier: ice License 1.0

package nip04

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

const (
	ivSeparator = "?iv="
	KeySize     = 32
)

var (
	ErrNip04Encryption  = errors.New("nip04 encryption error")
	ErrBase64Processing = errors.New("base64 processing error")

	// Rand is the IV source.
	Rand io.Reader = rand.Reader
)

// Encrypt produces "base64(ciphertext)?iv=base64(iv)" with AES-256-CBC keyed by a shared secret.
func Encrypt(message string, key []byte) (string, error) {
	return EncryptBytes([]byte(message), key)
}

func EncryptBytes(plaintext, key []byte) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(Rand, iv); err != nil {
		return "", errors.Wrap(err, "failed to generate initialization vector")
	}

	return encryptWithIV(plaintext, key, iv)
}

func encryptWithIV(plaintext, key, iv []byte) (string, error) {
	block, err := newCipher(key)
	if err != nil {
		return "", err
	}
	padding := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext), len(plaintext)+padding)
	copy(padded, plaintext)
	padded = append(padded, bytes.Repeat([]byte{byte(padding)}, padding)...)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) + ivSeparator + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt; plaintext must be valid UTF-8.
func Decrypt(content string, key []byte) (string, error) {
	plaintext, err := DecryptBytes(content, key)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", errors.Wrap(ErrNip04Encryption, "decrypted message is not valid utf-8")
	}

	return string(plaintext), nil
}

func DecryptBytes(content string, key []byte) ([]byte, error) {
	ciphertext, iv, err := parse(content)
	if err != nil {
		return nil, err
	}
	block, err := newCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.Wrapf(ErrNip04Encryption, "initialization vector must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Wrapf(ErrNip04Encryption, "ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext)
}

// IsEnvelope reports whether s looks like "<ciphertext>?iv=<iv>".
func IsEnvelope(s string) bool {
	_, _, err := parse(s)

	return err == nil
}

func parse(content string) (ciphertext, iv []byte, err error) {
	encodedCiphertext, encodedIV, found := strings.Cut(content, ivSeparator)
	if !found {
		return nil, nil, errors.Wrap(ErrNip04Encryption, "message is not nip04 compliant, can not determine initialization vector ('?iv=' probably missing)")
	}
	if ciphertext, err = base64.StdEncoding.DecodeString(encodedCiphertext); err != nil {
		return nil, nil, errors.Wrapf(ErrBase64Processing, "ciphertext: %v", err)
	}
	if iv, err = base64.StdEncoding.DecodeString(encodedIV); err != nil {
		return nil, nil, errors.Wrapf(ErrBase64Processing, "initialization vector: %v", err)
	}

	return ciphertext, iv, nil
}

func newCipher(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, errors.Wrapf(ErrNip04Encryption, "key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(ErrNip04Encryption, err.Error())
	}

	return block, nil
}

func unpad(plaintext []byte) ([]byte, error) {
	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(plaintext) {
		return nil, errors.Wrap(ErrNip04Encryption, "invalid padding")
	}
	for _, b := range plaintext[len(plaintext)-padding:] {
		if int(b) != padding {
			return nil, errors.Wrap(ErrNip04Encryption, "invalid padding")
		}
	}

	return plaintext[:len(plaintext)-padding], nil
}
