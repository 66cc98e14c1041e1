package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType names the AEAD used for message content at rest.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the required length of the message encryption key.
const KeySize = 32

var errCiphertextTooShort = errors.New("ciphertext too short")

// Cipher seals and opens message content. The nonce is generated per call and
// prepended to the ciphertext. additionalData is authenticated but not
// encrypted; the same value must be passed to Open.
type Cipher interface {
	Type() CipherType
	Seal(plaintext, additionalData []byte) ([]byte, error)
	Open(ciphertext, additionalData []byte) ([]byte, error)
}

type aeadCipher struct {
	t    CipherType
	aead cipher.AEAD
}

// NewCipher builds a Cipher of the given type over a 32-byte key.
// An empty type selects AES-256-GCM.
func NewCipher(key []byte, t CipherType) (Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d: must be %d bytes", len(key), KeySize)
	}

	switch t {
	case "", CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return &aeadCipher{t: CipherAESGCM, aead: aead}, nil
	case CipherChaCha20:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
		return &aeadCipher{t: CipherChaCha20, aead: aead}, nil
	default:
		return nil, fmt.Errorf("unknown cipher type: %s", t)
	}
}

func (c *aeadCipher) Type() CipherType {
	return c.t
}

func (c *aeadCipher) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Open(ciphertext, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns+c.aead.Overhead() {
		return nil, errCiphertextTooShort
	}
	return c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], additionalData)
}
