package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore is an in-memory Store. It is a test double standing in for
// the S3 store wherever a test needs the Store contract without a backend.
type memoryStore struct {
	mu       sync.RWMutex
	packages map[string]*memoryEntry
}

type memoryEntry struct {
	data []byte
	info PackageInfo
}

// NewMemory creates an empty in-memory package store.
func NewMemory() Store {
	return &memoryStore{
		packages: make(map[string]*memoryEntry),
	}
}

func (s *memoryStore) Put(ctx context.Context, name string, body io.Reader, info PackageInfo) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	info.Name = name
	info.Size = int64(len(data))
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[name] = &memoryEntry{data: data, info: info}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, name string) (io.ReadCloser, PackageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.packages[name]
	if !ok {
		return nil, PackageInfo{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(entry.data)), entry.info, nil
}

func (s *memoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[name]; !ok {
		return ErrNotFound
	}
	delete(s.packages, name)
	return nil
}

func (s *memoryStore) List(ctx context.Context, prefix string) ([]PackageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []PackageInfo
	for name, entry := range s.packages {
		if strings.HasPrefix(name, prefix) {
			infos = append(infos, entry.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
