package source

import "sync"

// Cache memoizes a decoded document dump so repeated window reads in one
// process do not re-read and re-decode the file. It belongs to the source
// that fills it; Reset forces the next read to go back to the file.
type Cache struct {
	mu        sync.RWMutex
	documents []Document
	filled    bool
}

func NewCache() *Cache {
	return &Cache{}
}

// Fill replaces the cached dump.
func (c *Cache) Fill(docs []Document) {
	c.mu.Lock()
	c.documents = append([]Document(nil), docs...)
	c.filled = true
	c.mu.Unlock()
}

// Documents returns the cached dump and whether the cache holds one. An
// empty dump is a valid cached state.
func (c *Cache) Documents() ([]Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filled {
		return nil, false
	}
	return append([]Document(nil), c.documents...), true
}

// Len reports the cached document count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

// Reset evicts the cached dump.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.documents = nil
	c.filled = false
	c.mu.Unlock()
}
