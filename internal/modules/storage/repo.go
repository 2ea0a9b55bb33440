package storage

import (
	"context"
	"sort"
	"sync"

	"hostbridge/internal/modkit/repokit"
)

// Storage defines the key-value repository behind the capability
type Storage interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Put(ctx context.Context, kv map[string]string) error
	Remove(ctx context.Context, keys []string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

type binder struct{}

// NewPG constructs a repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

type pg struct{ q repokit.Queryer }

// Schema is the backing table; applied by Initialize when the module owns
// a live Postgres seam
const Schema = `
CREATE TABLE IF NOT EXISTS bridge_kv (
	k          text PRIMARY KEY,
	v          text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

func (s *pg) Get(ctx context.Context, keys []string) (map[string]string, error) {
	rows, err := s.q.Query(ctx, `SELECT k, v FROM bridge_kv WHERE k = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *pg) Put(ctx context.Context, kv map[string]string) error {
	// deterministic write order keeps deadlock risk out of concurrent batches
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := s.q.Exec(ctx, `
			INSERT INTO bridge_kv (k, v, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = now()`,
			k, kv[k])
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *pg) Remove(ctx context.Context, keys []string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM bridge_kv WHERE k = ANY($1)`, keys)
	return err
}

func (s *pg) Clear(ctx context.Context) error {
	_, err := s.q.Exec(ctx, `DELETE FROM bridge_kv`)
	return err
}

func (s *pg) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.q.Query(ctx, `SELECT k FROM bridge_kv ORDER BY k`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// NewMemory returns an in-process Storage for development and tests,
// used when no Postgres seam is wired
func NewMemory() Storage { return &memory{kv: make(map[string]string)} }

type memory struct {
	mu sync.RWMutex
	kv map[string]string
}

func (m *memory) Get(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.kv[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memory) Put(_ context.Context, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kv {
		m.kv[k] = v
	}
	return nil
}

func (m *memory) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}

func (m *memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv = make(map[string]string)
	return nil
}

func (m *memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.kv))
	for k := range m.kv {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
