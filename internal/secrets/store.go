// Package secrets keeps the bearer tokens for the http backend, one per
// profile, in a 0600 file under the user config directory. Token values are
// sealed with AES-GCM; the claims read from each token are kept beside it so
// an expired token can be refused without opening it.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const fileName = "tokens.json"

var (
	// ErrNotFound is returned when no token is stored for a profile.
	ErrNotFound = errors.New("token not found")
	// ErrExpired is returned for a token whose expiry has passed.
	ErrExpired = errors.New("token expired")
)

// Token is a bearer token and what it says about itself. ExpiresAt is zero
// when the token carries no expiry.
type Token struct {
	Value     string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Check returns ErrExpired, wrapped with the expiry, once t has expired.
func (t Token) Check(now time.Time) error {
	if t.Expired(now) {
		return fmt.Errorf("%w at %s", ErrExpired, t.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

type record struct {
	Sealed    string    `json:"sealed"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	StoredAt  time.Time `json:"stored_at"`
}

type tokenFile struct {
	Profiles map[string]record `json:"profiles"`
}

// StoreToken saves tok for profile, replacing any earlier token.
func StoreToken(profile string, tok Token) error {
	profile, err := profileName(profile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tok.Value) == "" {
		return fmt.Errorf("token value required")
	}
	sealed, err := seal(tok.Value)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return update(func(tf *tokenFile) {
		tf.Profiles[profile] = record{
			Sealed:    sealed,
			Username:  tok.Username,
			ExpiresAt: tok.ExpiresAt.UTC(),
			StoredAt:  time.Now().UTC(),
		}
	})
}

// FetchToken returns the token stored for profile. An expired token is
// returned together with ErrExpired.
func FetchToken(profile string, now time.Time) (Token, error) {
	profile, err := profileName(profile)
	if err != nil {
		return Token{}, err
	}
	path, err := filePath()
	if err != nil {
		return Token{}, err
	}
	tf, err := load(path)
	if err != nil {
		return Token{}, err
	}
	rec, ok := tf.Profiles[profile]
	if !ok {
		return Token{}, ErrNotFound
	}
	tok := Token{Username: rec.Username, ExpiresAt: rec.ExpiresAt}
	if err := tok.Check(now); err != nil {
		return tok, err
	}
	if tok.Value, err = open(rec.Sealed); err != nil {
		return Token{}, fmt.Errorf("open token for %q: %w", profile, err)
	}
	return tok, nil
}

// DeleteToken forgets the token for profile.
func DeleteToken(profile string) error {
	profile, err := profileName(profile)
	if err != nil {
		return err
	}
	return update(func(tf *tokenFile) { delete(tf.Profiles, profile) })
}

func profileName(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("profile required")
	}
	return s, nil
}

func update(fn func(tf *tokenFile)) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	tf, err := load(path)
	if err != nil {
		return err
	}
	fn(&tf)
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func filePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "attredit")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func load(path string) (tokenFile, error) {
	tf := tokenFile{Profiles: map[string]record{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tf, nil
	}
	if err != nil {
		return tf, err
	}
	if err := json.Unmarshal(data, &tf); err != nil {
		return tf, fmt.Errorf("read %s: %w", path, err)
	}
	if tf.Profiles == nil {
		tf.Profiles = map[string]record{}
	}
	return tf, nil
}

// aead is keyed per OS user.
func aead() (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(fmt.Sprintf("attredit-%s-%s", runtime.GOOS, os.Getenv("USER"))))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(plain string) (string, error) {
	gcm, err := aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plain), nil)), nil
}

func open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	gcm, err := aead()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("sealed token too short")
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
