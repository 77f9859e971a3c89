// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

// Package crypto provides optional at-rest protection for cached payloads.
// Cached profile and medical records are sensitive; when the embedding
// application supplies a secret, every value written to durable storage is
// sealed with AES-256-GCM under a key derived from that secret.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Box seals and opens byte payloads with AES-256-GCM.
type Box interface {
	// Seal encrypts plaintext. The returned blob is nonce ‖ ciphertext.
	Seal(plaintext []byte) ([]byte, error)

	// Open decrypts a blob produced by Seal. Returns an error if the blob
	// is truncated, the key is wrong, or the ciphertext is corrupted
	// (authentication-tag mismatch).
	Open(blob []byte) ([]byte, error)
}

type box struct {
	aead cipher.AEAD
}

// NewBox derives a 256-bit key from secret via Argon2id and returns a Box
// using it. The salt is fixed: the secret is installation-local, never sent
// anywhere, and a single derived key per installation is exactly the
// contract this store needs.
//
// Argon2id parameters follow the OWASP (2024) recommendation:
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
func NewBox(secret string) (Box, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty crypto secret")
	}

	salt := sha256.Sum256([]byte("syncline.at-rest.v1"))
	key := argon2.IDKey([]byte(secret), salt[:16], 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &box{aead: aead}, nil
}

// Seal implements [Box].
func (b *box) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	// Prepend the nonce so Open can split it out.
	return append(nonce, b.aead.Seal(nil, nonce, plaintext, nil)...), nil
}

// Open implements [Box].
func (b *box) Open(blob []byte) ([]byte, error) {
	nonceSize := b.aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}
