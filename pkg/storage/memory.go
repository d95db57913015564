package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryDisk keeps files in a map. Used by tests and single-process demos.
type MemoryDisk struct {
	mu      sync.RWMutex
	files   map[string][]byte
	mod     map[string]time.Time
	baseURL string
}

func NewMemoryDisk(baseURL string) *MemoryDisk {
	return &MemoryDisk{
		files:   map[string][]byte{},
		mod:     map[string]time.Time{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (d *MemoryDisk) Put(_ context.Context, path string, content []byte, _ string) error {
	d.mu.Lock()
	d.files[path] = append([]byte(nil), content...)
	d.mod[path] = time.Now().UTC()
	d.mu.Unlock()
	return nil
}

func (d *MemoryDisk) Get(_ context.Context, path string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.files[path]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (d *MemoryDisk) Exists(_ context.Context, path string) (bool, error) {
	d.mu.RLock()
	_, ok := d.files[path]
	d.mu.RUnlock()
	return ok, nil
}

func (d *MemoryDisk) Delete(_ context.Context, path string) error {
	d.mu.Lock()
	delete(d.files, path)
	delete(d.mod, path)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDisk) List(_ context.Context, prefix string) ([]Object, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Object
	for p, data := range d.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, Object{Path: p, Size: int64(len(data)), LastModified: d.mod[p]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (d *MemoryDisk) URL(path string) string {
	return d.baseURL + "/" + strings.TrimLeft(path, "/")
}
