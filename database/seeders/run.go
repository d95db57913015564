// Package seeders fills a fresh database with demo data. Each seeder
// registers itself from init():
//
//	func init() { seeders.Register("demo", seedDemo) }
//
// and `sitebuilder seed` runs them in registration order.
package seeders

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

// SeederFunc inserts rows. Seeders must be safe to run more than once.
type SeederFunc func(ctx context.Context, db *gorm.DB) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// Names lists the registered seeders.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// RunAll runs every seeder and stops at the first error.
func RunAll(ctx context.Context, db *gorm.DB) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	for _, e := range current {
		logger.Info("seeder: running", "name", e.name)
		if err := e.fn(ctx, db); err != nil {
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
	}
	logger.Info("seeders done", "count", len(current))
	return nil
}
