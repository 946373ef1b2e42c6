package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store persists one Snapshot. Load never fails on unreadable content:
// a snapshot that does not parse is reported as empty.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}

func decodeSnapshot(raw []byte, log zerolog.Logger) Snapshot {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable session snapshot")
		return Snapshot{}
	}
	if s.View != "" && !s.View.Valid() {
		s.View = ""
	}
	return s
}

// FileStore keeps the snapshot as a JSON file.
type FileStore struct {
	path string
	log  zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read session file: %w", err)
	}
	return decodeSnapshot(raw, f.log), nil
}

// Save writes to a temp file and renames it over the old one.
func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// RedisStore keeps the snapshot under a single key so that several
// clients can share one session.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisStore returns a RedisStore. ttl <= 0 stores without expiry.
func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, ttl: ttl, log: log}
}

func (r *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSnapshot(raw, r.log), nil
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
