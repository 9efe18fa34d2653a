package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blob keys, one JSON document per entity kind.
const (
	KeyCourses  = "elearning_courses"
	KeyVideos   = "elearning_videos"
	KeyStudents = "elearning_students"
	KeyPayments = "elearning_payments"
	KeySettings = "elearning_settings"
)

// Backend is the key-value surface BlobStore persists through.
// Get reports a missing key with a false flag.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Blob is one key and its encoded value.
type Blob struct {
	Key   string
	Value []byte
}

// BatchBackend is implemented by backends that can write several blobs
// as one unit. Either all of them are stored or none.
type BatchBackend interface {
	PutAll(blobs []Blob) error
}

// MemoryBackend keeps blobs in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (b *MemoryBackend) Put(key string, value []byte) error {
	out := make([]byte, len(value))
	copy(out, value)
	b.mu.Lock()
	b.blobs[key] = out
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) PutAll(blobs []Blob) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, blob := range blobs {
		out := make([]byte, len(blob.Value))
		copy(out, blob.Value)
		b.blobs[blob.Key] = out
	}
	return nil
}

// RedisBackend stores blobs as plain Redis strings under an optional prefix.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisBackend builds a Redis-backed blob backend.
func NewRedisBackend(addr, password, prefix string) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:  prefix,
		timeout: 3 * time.Second,
	}
}

func (b *RedisBackend) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	v, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Put(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.client.Set(ctx, b.prefix+key, value, 0).Err()
}

// PutAll writes every blob in one MULTI/EXEC transaction.
func (b *RedisBackend) PutAll(blobs []Blob) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, blob := range blobs {
			pipe.Set(ctx, b.prefix+blob.Key, blob.Value, 0)
		}
		return nil
	})
	return err
}

// Close releases the Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
