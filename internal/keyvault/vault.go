// Package keyvault stores learners' third-party AI API keys, sealed with
// XChaCha20-Poly1305 under a key derived from the server secret.
package keyvault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// Key slots. Each AI tool reads its key from one slot.
const (
	GeminiQuiz         = "geminiQuiz"
	GeminiSentences    = "geminiSentences"
	GeminiGym          = "geminiGym"
	OpenRouterWriting  = "openrouterWriting"
	OpenRouterCreative = "openrouterCreative"
)

var slots = []string{GeminiGym, GeminiQuiz, GeminiSentences, OpenRouterCreative, OpenRouterWriting}

var (
	// ErrUnknownSlot means the slot name is not recognised.
	ErrUnknownSlot = errors.New("unknown key slot")
	// ErrNoKey means the learner has not stored a key in the slot.
	ErrNoKey = errors.New("api key is missing")
	// ErrDecrypt means a sealed key could not be opened, usually after a
	// secret rotation.
	ErrDecrypt = errors.New("api key could not be decrypted")
)

// Slots lists the known slot names.
func Slots() []string {
	return slices.Clone(slots)
}

// Store persists sealed keys.
type Store interface {
	// Sealed returns every sealed key of the learner by slot.
	Sealed(ctx context.Context, learnerID string) (map[string][]byte, error)
	// PutSealed upserts sealed keys; other slots are left untouched.
	PutSealed(ctx context.Context, learnerID string, sealed map[string][]byte) error
}

// Vault seals and opens learner API keys.
type Vault struct {
	store Store
	aead  cipher.AEAD
}

// New creates a vault. The secret is stretched with BLAKE2b-256 into the
// XChaCha20-Poly1305 key.
func New(secret string, store Store) (*Vault, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("vault secret must be at least 16 characters")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	key := blake2b.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Vault{store: store, aead: aead}, nil
}

// Save merges keys into the learner's vault. Empty values are skipped so a
// partially filled form never erases a stored key.
func (v *Vault) Save(ctx context.Context, learnerID string, keys map[string]string) error {
	sealed := make(map[string][]byte)
	for slot, key := range keys {
		if !slices.Contains(slots, slot) {
			return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		s, err := v.seal(learnerID, slot, key)
		if err != nil {
			return err
		}
		sealed[slot] = s
	}
	if len(sealed) == 0 {
		return nil
	}
	if err := v.store.PutSealed(ctx, learnerID, sealed); err != nil {
		return fmt.Errorf("save keys: %w", err)
	}
	slog.Info("api keys saved", "learner_id", learnerID, "slots", slices.Sorted(maps.Keys(sealed)))
	return nil
}

// Keys returns the learner's plaintext keys by slot. Keys that fail to
// open are omitted and logged.
func (v *Vault) Keys(ctx context.Context, learnerID string) (map[string]string, error) {
	sealed, err := v.store.Sealed(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	out := make(map[string]string, len(sealed))
	for slot, s := range sealed {
		key, err := v.open(learnerID, slot, s)
		if err != nil {
			slog.Warn("dropping undecryptable api key", "learner_id", learnerID, "slot", slot)
			continue
		}
		out[slot] = key
	}
	return out, nil
}

// Key returns one plaintext key or ErrNoKey.
func (v *Vault) Key(ctx context.Context, learnerID, slot string) (string, error) {
	if !slices.Contains(slots, slot) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	keys, err := v.Keys(ctx, learnerID)
	if err != nil {
		return "", err
	}
	key, ok := keys[slot]
	if !ok {
		return "", fmt.Errorf("%s: %w", slot, ErrNoKey)
	}
	return key, nil
}

// Masked returns every slot with its key masked for display; unset slots
// map to "".
func (v *Vault) Masked(ctx context.Context, learnerID string) (map[string]string, error) {
	keys, err := v.Keys(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(slots))
	for _, slot := range slots {
		out[slot] = Mask(keys[slot])
	}
	return out, nil
}

// Mask hides all but the last four characters of a key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	r := []rune(key)
	if len(r) <= 4 {
		return strings.Repeat("•", len(r))
	}
	return strings.Repeat("•", len(r)-4) + string(r[len(r)-4:])
}

// seal output is nonce || ciphertext. The learner and slot are bound as
// associated data so a sealed key cannot be moved to another row.
func (v *Vault) seal(learnerID, slot, key string) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(key)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, []byte(key), associatedData(learnerID, slot)), nil
}

func (v *Vault) open(learnerID, slot string, sealed []byte) (string, error) {
	n := v.aead.NonceSize()
	if len(sealed) < n+v.aead.Overhead() {
		return "", ErrDecrypt
	}
	plain, err := v.aead.Open(nil, sealed[:n], sealed[n:], associatedData(learnerID, slot))
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func associatedData(learnerID, slot string) []byte {
	return []byte(learnerID + "\x00" + slot)
}
