package services

import (
	"context"
	"sync"
	"time"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/event"
)

type editorKey struct{ userID, siteID string }

type editorEntry struct {
	editor   *Editor
	lastUsed time.Time
}

// EditorRegistry holds the open builder sessions, one per user and site.
type EditorRegistry struct {
	mu      sync.Mutex
	editors map[editorKey]*editorEntry

	sites *SiteService
	repo  repositories.SiteRepository
	bus   *event.Bus
	now   Clock
}

func NewEditorRegistry(sites *SiteService, repo repositories.SiteRepository, bus *event.Bus, now Clock) *EditorRegistry {
	return &EditorRegistry{
		editors: map[editorKey]*editorEntry{},
		sites:   sites,
		repo:    repo,
		bus:     bus,
		now:     clockOr(now),
	}
}

// Open returns the session of userID on siteID, starting one from the
// stored document when none exists. A clean session whose document is older
// than the stored one is replaced; a session with unsaved changes is kept.
func (r *EditorRegistry) Open(ctx context.Context, userID, siteID string) (*Editor, error) {
	site, err := r.sites.Get(ctx, userID, siteID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := editorKey{userID, siteID}
	if entry, ok := r.editors[key]; ok {
		if entry.editor.Dirty() || entry.editor.Version() >= site.Version {
			entry.lastUsed = r.now()
			return entry.editor, nil
		}
	}
	ed := NewEditor(site, r.repo, r.bus, r.now)
	r.editors[key] = &editorEntry{editor: ed, lastUsed: r.now()}
	return ed, nil
}

// Get returns an open session or models.ErrNotFound.
func (r *EditorRegistry) Get(userID, siteID string) (*Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.editors[editorKey{userID, siteID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	entry.lastUsed = r.now()
	return entry.editor, nil
}

// Close drops a session, discarding unsaved changes.
func (r *EditorRegistry) Close(userID, siteID string) {
	r.mu.Lock()
	delete(r.editors, editorKey{userID, siteID})
	r.mu.Unlock()
}

// CloseSite drops every session on siteID, used when the site is deleted.
func (r *EditorRegistry) CloseSite(siteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.editors {
		if k.siteID == siteID {
			delete(r.editors, k)
		}
	}
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (r *EditorRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, entry := range r.editors {
		if entry.lastUsed.Before(cutoff) {
			delete(r.editors, k)
			n++
		}
	}
	return n
}

// Len is the number of open sessions.
func (r *EditorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}
