package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	corekv "github.com/colonyops/yearn/internal/core/kv"
	"github.com/colonyops/yearn/pkg/kv"
)

type entry struct {
	value   []byte
	expires time.Time
}

// KV implements kv.KV in memory.
type KV struct {
	entries *kv.Store[string, entry]

	// Now is the clock used for TTL checks.
	Now func() time.Time
}

var _ corekv.KV = (*KV)(nil)

// NewKV returns an empty in-memory KV.
func NewKV() *KV {
	return &KV{entries: kv.New[string, entry](), Now: time.Now}
}

func (s *KV) Get(_ context.Context, key string, dest any) error {
	e, ok := s.live(key)
	if !ok {
		return fmt.Errorf("kv get %q: %w", key, corekv.ErrNotFound)
	}
	if err := json.Unmarshal(e.value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

func (s *KV) Set(_ context.Context, key string, value any) error {
	return s.set(key, value, time.Time{})
}

func (s *KV) SetTTL(_ context.Context, key string, value any, ttl time.Duration) error {
	return s.set(key, value, s.Now().Add(ttl))
}

func (s *KV) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

func (s *KV) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.live(key)
	return ok, nil
}

func (s *KV) ListKeys(_ context.Context, prefix string) ([]string, error) {
	out := make([]string, 0)
	for _, k := range s.entries.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := s.live(k); ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *KV) set(key string, value any, expires time.Time) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}
	s.entries.Set(key, entry{value: b, expires: expires})
	return nil
}

func (s *KV) live(key string) (entry, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && s.Now().After(e.expires) {
		s.entries.Delete(key)
		return entry{}, false
	}
	return e, true
}
