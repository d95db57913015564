package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// tickingClock advances one second per call.
func tickingClock() services.Clock {
	var mu sync.Mutex
	t := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	clock  services.Clock
	bus    *event.Bus
	repo   *repositories.MemorySiteRepository
	users  *repositories.MemoryUserRepository
	orders *repositories.MemoryOrderRepository
	events *repositories.MemoryAnalyticsRepository
	sites  *services.SiteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.Discard()
	clock := tickingClock()
	repoClock := repositories.Clock(clock)
	f := &fixture{
		clock:  clock,
		bus:    event.NewBus(),
		repo:   repositories.NewMemorySiteRepository(repoClock),
		users:  repositories.NewMemoryUserRepository(repoClock),
		orders: repositories.NewMemoryOrderRepository(repoClock),
		events: repositories.NewMemoryAnalyticsRepository(repoClock, 0),
	}
	f.sites = services.NewSiteService(f.repo, f.bus, clock)
	return f
}

// onboard creates a restaurant site owned by userID.
func (f *fixture) onboard(t *testing.T, userID, name string) *models.Site {
	t.Helper()
	site, err := f.sites.Onboard(context.Background(), userID, services.OnboardInput{
		BusinessName: name,
		Industry:     models.IndustryRestaurants,
	})
	require.NoError(t, err)
	return site
}

// record collects the payloads fired for event.
func (f *fixture) record(name string) func() []any {
	var mu sync.Mutex
	var got []any
	f.bus.Listen(name, func(_ context.Context, payload any) error {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		return nil
	})
	return func() []any {
		mu.Lock()
		defer mu.Unlock()
		return append([]any(nil), got...)
	}
}

// mapStore is a CartStore over a plain map with JSON round trips, like the
// session store.
type mapStore map[string][]byte

func (m mapStore) Get(key string, dest any) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m mapStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

// jobRecorder is a Dispatcher that keeps the jobs instead of queueing them.
type jobRecorder struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (r *jobRecorder) Dispatch(_ context.Context, job queue.Job) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	return nil
}

func (r *jobRecorder) last(t *testing.T) queue.Job {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.jobs)
	return r.jobs[len(r.jobs)-1]
}
