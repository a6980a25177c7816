package token

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/sys/cpu"
)

const (
	// KeySize is the size of the per-batch key in bytes.
	KeySize = 32
	// NonceSize is the size of the per-token nonce in bytes.
	NonceSize = 12
	// TagSize is the size of the AEAD authentication tag in bytes.
	TagSize = 16
)

// Cipher names an AEAD construction with a 256-bit key and a 96-bit nonce.
type Cipher string

const (
	CipherAuto     Cipher = "auto"
	CipherAESGCM   Cipher = "aes-gcm"
	CipherChaCha20 Cipher = "chacha20-poly1305"
)

// ParseCipher maps a configuration string to a Cipher.
func ParseCipher(s string) (Cipher, error) {
	switch c := Cipher(s); c {
	case "", CipherAuto:
		return CipherAuto, nil
	case CipherAESGCM, CipherChaCha20:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported token cipher: %q (use %q, %q or %q)", s, CipherAuto, CipherAESGCM, CipherChaCha20)
	}
}

// resolve picks AES-GCM when the CPU accelerates AES, ChaCha20-Poly1305 otherwise.
func (c Cipher) resolve() Cipher {
	if c != CipherAuto {
		return c
	}
	if hasAESHardware() {
		return CipherAESGCM
	}
	return CipherChaCha20
}

func hasAESHardware() bool {
	return cpu.X86.HasAES || cpu.ARM64.HasAES || cpu.S390X.HasAES
}

// newAEAD builds the AEAD for key.
func newAEAD(c Cipher, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), KeySize)
	}

	switch c.resolve() {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return gcm, nil
	case CipherChaCha20:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create chacha20-poly1305: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("unsupported token cipher: %q", c)
	}
}
