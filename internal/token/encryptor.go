package token

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// Compile-time check: Encryptor implements domain.TokenEncryptor.
var _ domain.TokenEncryptor = (*Encryptor)(nil)

// Config selects the AEAD and the sealing parallelism.
type Config struct {
	Cipher Cipher
	// Workers > 1 seals tokens concurrently; output order is unchanged.
	Workers int
	// Rand overrides the entropy source, crypto/rand.Reader by default.
	// It must be safe for concurrent use when Workers > 1.
	Rand io.Reader
}

// Encryptor produces display tokens. It keeps no key material between calls
// and is safe for concurrent use.
type Encryptor struct {
	cipher  Cipher
	workers int
	rand    io.Reader
}

// New creates an Encryptor from cfg.
func New(cfg Config) *Encryptor {
	if cfg.Cipher == "" {
		cfg.Cipher = CipherAuto
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	return &Encryptor{cipher: cfg.Cipher, workers: cfg.Workers, rand: cfg.Rand}
}

// Available probes the entropy source and the AEAD constructor.
func (e *Encryptor) Available() bool {
	probe := make([]byte, KeySize)
	if _, err := io.ReadFull(e.rand, probe); err != nil {
		return false
	}
	_, err := newAEAD(e.cipher, probe)
	return err == nil
}

// Encrypt returns one token per assignment, index-aligned with assignments.
//
// When the capability probe fails the result has Available=false and no
// error. A failure while sealing any single token aborts the batch with
// domain.ErrTokenGeneration.
func (e *Encryptor) Encrypt(ctx context.Context, assignments []domain.Assignment) (domain.TokenSet, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(e.rand, key); err != nil {
		slog.WarnContext(ctx, "token key unavailable", "error", err)
		return domain.TokenSet{Available: false}, nil
	}
	defer clear(key)

	aead, err := newAEAD(e.cipher, key)
	if err != nil {
		slog.WarnContext(ctx, "token cipher unavailable", "cipher", string(e.cipher), "error", err)
		return domain.TokenSet{Available: false}, nil
	}

	tokens := make([]domain.Token, len(assignments))
	seal := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := e.seal(aead, []byte(assignments[i].Recipient.ID))
		if err != nil {
			return fmt.Errorf("%w: assignment %d: %v", domain.ErrTokenGeneration, i, err)
		}
		tokens[i] = tok
		return nil
	}

	if e.workers == 1 {
		for i := range assignments {
			if err := seal(ctx, i); err != nil {
				return domain.TokenSet{}, abort(err)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i := range assignments {
			g.Go(func() error { return seal(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return domain.TokenSet{}, abort(err)
		}
	}

	return domain.TokenSet{Available: true, Tokens: tokens}, nil
}

// seal draws a fresh nonce and returns base64(nonce || ciphertext || tag).
func (e *Encryptor) seal(aead cipher.AEAD, plaintext []byte) (domain.Token, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+TagSize)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return "", fmt.Errorf("reading nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, nil)
	return domain.Token(base64.StdEncoding.EncodeToString(out)), nil
}

// abort tags cancellation with ErrTokenGeneration; the context error stays matchable.
func abort(err error) error {
	if errors.Is(err, domain.ErrTokenGeneration) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
}
