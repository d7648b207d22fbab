package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fashionvista/fashionvista/internal/cache"
	"gopkg.in/yaml.v3"
)

// RedisTokenStore keeps tokens in the shared cache under
// session:<id>:jwt, expiring with the token.
type RedisTokenStore struct {
	cache cache.Cache
}

func NewRedisTokenStore(c cache.Cache) *RedisTokenStore {
	return &RedisTokenStore{cache: c}
}

func (s *RedisTokenStore) Save(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	return s.cache.Set(ctx, cache.SessionTokenKey(sessionID), []byte(token), ttl)
}

func (s *RedisTokenStore) Load(ctx context.Context, sessionID string) (string, time.Duration, bool, error) {
	key := cache.SessionTokenKey(sessionID)
	val, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return "", 0, false, err
	}
	ttl, found, err := s.cache.TTL(ctx, key)
	if err != nil || !found {
		// The key can expire between the two reads.
		return "", 0, false, err
	}
	return string(val), ttl, true, nil
}

func (s *RedisTokenStore) Clear(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, cache.SessionTokenKey(sessionID))
}

// credentialsFile is the on-disk layout of FileTokenStore.
type credentialsFile struct {
	JWT       string     `yaml:"jwt"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// FileTokenStore keeps a single token in a YAML file for the CLI. The
// session id is ignored: a file holds exactly one local session.
type FileTokenStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, now: time.Now}
}

// DefaultCredentialsPath returns <user config dir>/fashionvista/credentials.yaml.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "fashionvista", "credentials.yaml"), nil
}

func (s *FileTokenStore) Path() string { return s.path }

func (s *FileTokenStore) Save(_ context.Context, _ string, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := credentialsFile{JWT: token}
	if ttl > 0 {
		exp := s.now().Add(ttl).UTC().Truncate(time.Second)
		creds.ExpiresAt = &exp
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Load(_ context.Context, _ string) (string, time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("read credentials: %w", err)
	}

	var creds credentialsFile
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return "", 0, false, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.JWT == "" {
		return "", 0, false, nil
	}

	ttl := time.Duration(-1)
	if creds.ExpiresAt != nil {
		ttl = creds.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return "", 0, false, nil
		}
	}
	return creds.JWT, ttl, true, nil
}

func (s *FileTokenStore) Clear(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

var (
	_ TokenStore = (*RedisTokenStore)(nil)
	_ TokenStore = (*FileTokenStore)(nil)
)
