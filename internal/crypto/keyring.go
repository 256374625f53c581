package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const sealedPrefix = "v1"

var ErrMalformedSecret = errors.New("malformed sealed secret")

// Keyring seals provider secrets with AES-256-GCM. Sealed values carry the id of the
// key that produced them, so older keys stay readable after rotation.
type Keyring struct {
	currentID string
	aeads     map[string]cipher.AEAD
}

func NewKeyring(currentID string, keys map[string][]byte) (*Keyring, error) {
	if currentID == "" {
		return nil, fmt.Errorf("current key id is empty")
	}
	if _, ok := keys[currentID]; !ok {
		return nil, fmt.Errorf("current key id %q not found", currentID)
	}
	aeads := make(map[string]cipher.AEAD, len(keys))
	for id, key := range keys {
		if strings.Contains(id, ":") {
			return nil, fmt.Errorf("key id %q must not contain ':'", id)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %q must be 32 bytes", id)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("key %q: new cipher: %w", id, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key %q: new gcm: %w", id, err)
		}
		aeads[id] = aead
	}
	return &Keyring{currentID: currentID, aeads: aeads}, nil
}

// Seal encrypts value with the current key. The result has the form
// v1:<key id>:<base64 nonce||ciphertext>.
func (k *Keyring) Seal(value string) (string, error) {
	aead := k.aeads[k.currentID]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), []byte(k.currentID))
	return sealedPrefix + ":" + k.currentID + ":" + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (k *Keyring) Open(sealed string) (string, error) {
	parts := strings.SplitN(sealed, ":", 3)
	if len(parts) != 3 || parts[0] != sealedPrefix {
		return "", ErrMalformedSecret
	}
	keyID := parts[1]
	aead, ok := k.aeads[keyID]
	if !ok {
		return "", fmt.Errorf("unknown key id %q", keyID)
	}
	raw, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrMalformedSecret
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], []byte(keyID))
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// Reseal re-encrypts a sealed value under the current key.
func (k *Keyring) Reseal(sealed string) (string, error) {
	plain, err := k.Open(sealed)
	if err != nil {
		return "", err
	}
	return k.Seal(plain)
}

// OpenOptional returns "" for nil or blank values.
func (k *Keyring) OpenOptional(sealed *string) (string, error) {
	if sealed == nil || strings.TrimSpace(*sealed) == "" {
		return "", nil
	}
	if k == nil {
		return "", fmt.Errorf("sealed secret present but no keyring configured")
	}
	return k.Open(*sealed)
}
