// Package doccrypt encrypts archived export artifacts at rest with a key
// derived from a passphrase.
package doccrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const kdfIterations = 4096

type DocCrypt struct {
	gcm cipher.AEAD
}

func New(passphrase string) (*DocCrypt, error) {
	key := pbkdf2.Key([]byte(passphrase), nil, kdfIterations, 32, sha256.New)

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	return &DocCrypt{gcm: gcm}, nil
}

// Encrypt seals the input; the nonce is prepended to the ciphertext.
func (d *DocCrypt) Encrypt(input io.Reader) (io.ReadSeeker, error) {
	nonce := make([]byte, d.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	plainText, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}

	cipherText := d.gcm.Seal(nil, nonce, plainText, nil)

	out := make([]byte, 0, len(nonce)+len(cipherText))
	out = append(out, nonce...)
	out = append(out, cipherText...)
	return bytes.NewReader(out), nil
}

// Decrypt opens data produced by Encrypt.
func (d *DocCrypt) Decrypt(input io.Reader) (io.ReadSeeker, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}

	nonceSize := d.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("input shorter than nonce")
	}

	plainText, err := d.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(plainText), nil
}
