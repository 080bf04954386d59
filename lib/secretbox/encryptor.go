// Copyright (C) 2026 tacoshell authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package secretbox provides passphrase-based authenticated encryption
// of opaque secret payloads, implemented on top of filippo.io/age's
// scrypt recipient over ChaCha20-Poly1305.
package secretbox

import (
	"bytes"
	"io"
	"unicode/utf8"

	"filippo.io/age"
)

// Encryptor holds a master key (the age passphrase) for the process
// lifetime and encrypts/decrypts opaque byte strings under it.
type Encryptor struct {
	passphrase string
}

// New builds an Encryptor over the given master key. The key is held
// as the age scrypt passphrase; it is never logged or returned.
func New(masterKey string) *Encryptor {
	return &Encryptor{passphrase: masterKey}
}

// Encrypt produces a self-contained, non-deterministic ciphertext blob
// that Decrypt (given the same key) recovers bit-exactly.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(e.passphrase)
	if err != nil {
		return nil, newError(KindIO, "building scrypt recipient: "+err.Error())
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, newError(KindIO, "opening age writer: "+err.Error())
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, newError(KindIO, "writing plaintext: "+err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, newError(KindIO, "closing age writer: "+err.Error())
	}
	return buf.Bytes(), nil
}

// Decrypt recovers the plaintext from a blob produced by Encrypt.
// Fails with KindBadKey if the passphrase is wrong, KindCorrupt if the
// blob is malformed/truncated.
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(e.passphrase)
	if err != nil {
		return nil, newError(KindIO, "building scrypt identity: "+err.Error())
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, classifyDecryptError(err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, classifyDecryptError(err)
	}
	return plaintext, nil
}

// classifyDecryptError maps an age library error onto the secret/*
// taxonomy. age does not always distinguish "header well-formed but
// passphrase wrong" from "header malformed" in its error types, so
// this is a best-effort classification by error shape: failures
// surfaced while parsing the header format are treated as corrupt,
// anything else (the scrypt stanza itself failing to unwrap, which is
// what a wrong passphrase produces) is treated as a bad key.
func classifyDecryptError(err error) error {
	msg := err.Error()
	if looksLikeFormatError(msg) {
		return newError(KindCorrupt, msg)
	}
	return newError(KindBadKey, msg)
}

func looksLikeFormatError(msg string) bool {
	for _, needle := range []string{
		"malformed", "invalid header", "unexpected EOF", "bad header",
		"failed to read", "unknown age", "parse",
	} {
		if containsFold(msg, needle) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return bytes.Contains(bytes.ToLower([]byte(haystack)), bytes.ToLower([]byte(needle)))
}

// EncryptString is the UTF-8 convenience wrapper over Encrypt.
func (e *Encryptor) EncryptString(plaintext string) ([]byte, error) {
	return e.Encrypt([]byte(plaintext))
}

// DecryptString is the UTF-8 convenience wrapper over Decrypt; it
// fails with KindEncoding if the decrypted bytes are not valid UTF-8.
func (e *Encryptor) DecryptString(ciphertext []byte) (string, error) {
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", newError(KindEncoding, "decrypted payload is not valid UTF-8")
	}
	return string(plaintext), nil
}
