// Package storage persists respondent sessions in NATS KV and submitted case
// records in SQLite.
package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/c360studio/aos/session"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketSessions is the KV bucket holding sessions keyed by user.
const BucketSessions = "AOS_SESSIONS"

// SessionStore reads and writes the session of an authenticated respondent.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*session.Session, error)
	Put(ctx context.Context, s *session.Session) error
	Delete(ctx context.Context, userID string) error
}

// kvBucket is the part of jetstream.KeyValue the session store uses.
type kvBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// KVSessionStore stores sessions in a JetStream KV bucket.
type KVSessionStore struct {
	kv     kvBucket
	logger *slog.Logger
}

// NewKVSessionStore opens (creating if needed) the session bucket. Entries
// expire after ttl of inactivity; zero keeps them forever.
func NewKVSessionStore(ctx context.Context, js jetstream.JetStream, ttl time.Duration, logger *slog.Logger) (*KVSessionStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketSessions,
		Description: "Respondent journey sessions",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return newKVSessionStore(kv, logger), nil
}

// OpenKVSessionStore opens the existing session bucket without changing its
// configuration.
func OpenKVSessionStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) (*KVSessionStore, error) {
	kv, err := js.KeyValue(ctx, BucketSessions)
	if err != nil {
		return nil, fmt.Errorf("open sessions bucket: %w", err)
	}
	return newKVSessionStore(kv, logger), nil
}

func newKVSessionStore(kv kvBucket, logger *slog.Logger) *KVSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVSessionStore{kv: kv, logger: logger}
}

// sessionKey maps a user identifier onto the KV key alphabet.
func sessionKey(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id: %w", ErrInvalidKey)
	}
	return "user." + base64.RawURLEncoding.EncodeToString([]byte(userID)), nil
}

// Get returns the session of userID, or ErrNotFound.
func (s *KVSessionStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	key, err := sessionKey(userID)
	if err != nil {
		return nil, err
	}

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(entry.Value(), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Put writes the session. Concurrent writers for one user are last write
// wins.
func (s *KVSessionStore) Put(ctx context.Context, sess *session.Session) error {
	key, err := sessionKey(sess.UserID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	s.logger.Debug("Session stored", "session_id", sess.ID, "steps", len(sess.Steps))
	return nil
}

// Delete removes the session of userID. Deleting a missing session is not
// an error.
func (s *KVSessionStore) Delete(ctx context.Context, userID string) error {
	key, err := sessionKey(userID)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, key); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process memory. Stored sessions are
// copied through JSON so callers never share state with the store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

// Get returns the session of userID, or ErrNotFound.
func (m *MemorySessionStore) Get(_ context.Context, userID string) (*session.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id: %w", ErrInvalidKey)
	}
	m.mu.RLock()
	data, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Put writes the session.
func (m *MemorySessionStore) Put(_ context.Context, sess *session.Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("user id: %w", ErrInvalidKey)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	m.mu.Lock()
	m.sessions[sess.UserID] = data
	m.mu.Unlock()
	return nil
}

// Delete removes the session of userID.
func (m *MemorySessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Users returns the user identifiers with a stored session.
func (m *MemorySessionStore) Users() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.sessions))
	for u := range maps.Keys(m.sessions) {
		users = append(users, u)
	}
	return users
}
