package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// FileSource reads documents from a JSON dump (an array of Document), the
// offline stand-in for the provider API. The decoded dump is memoized in
// the cache, so reading several windows only decodes the file once.
type FileSource struct {
	path  string
	cache *Cache
}

func NewFileSource(path string, cache *Cache) *FileSource {
	if cache == nil {
		cache = NewCache()
	}
	return &FileSource{path: path, cache: cache}
}

// Documents implements Source. Ordering is by legal date, then document ID,
// so repeated runs see the same sequence regardless of dump order.
func (f *FileSource) Documents(ctx context.Context, from, to time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, ok := f.cache.Documents()
	if !ok {
		raw, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read documents: %w", err)
		}
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode documents from %s: %w", f.path, err)
		}
		f.cache.Fill(docs)
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.Created.Before(from) || !d.Created.Before(to) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Memory is a seedable in-memory source for tests and the HTTP surface.
type Memory struct {
	docs []Document
}

func NewMemory(docs ...Document) *Memory { return &Memory{docs: docs} }

func (m *Memory) Seed(docs ...Document) { m.docs = append(m.docs, docs...) }

// Documents implements Source, preserving seed order within the window.
func (m *Memory) Documents(ctx context.Context, from, to time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Document
	for _, d := range m.docs {
		if d.Created.Before(from) || !d.Created.Before(to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
