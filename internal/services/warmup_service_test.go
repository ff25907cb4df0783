package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// fakeWarmer counts stats calls. A non-nil gate makes every call block
// until the gate closes or the context ends.
type fakeWarmer struct {
	mu    sync.Mutex
	calls []string
	gate  chan struct{}
	fail  func(product string) error
}

func (f *fakeWarmer) compute(ctx context.Context, op string, req api.StatsRequest) (*domain.StatsReport, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, op+":"+req.Product)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(req.Product); err != nil {
			return nil, err
		}
	}
	return &domain.StatsReport{Product: req.Product}, nil
}

func (f *fakeWarmer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeWarmer) HourlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.compute(ctx, "hour", req)
}

func (f *fakeWarmer) MinuteStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.compute(ctx, "minute", req)
}

func (f *fakeWarmer) DayOfWeekStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.compute(ctx, "day_of_week", req)
}

func (f *fakeWarmer) MonthlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.compute(ctx, "month", req)
}

type fakeLister struct {
	products []domain.Product
	err      error
}

func (f *fakeLister) Products(context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

// fakeHub records broadcast events.
type fakeHub struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeHub) Broadcast(event string, _ any) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeHub) seen(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

func waitIdle(t *testing.T, svc *WarmupService) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !svc.Status().Running
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWarmupService_Start(t *testing.T) {
	warmer := &fakeWarmer{}
	hub := &fakeHub{}
	svc := NewWarmupService(warmer, &fakeLister{}, hub, nil, discardLogger())

	jobID, err := svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"ES", "NQ"},
		Groupings: []string{"hour", "month"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	waitIdle(t, svc)

	status := svc.Status()
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, 4, status.Total)
	assert.Equal(t, 4, status.Completed)
	assert.Zero(t, status.Failed)
	assert.Empty(t, status.Error)
	require.NotNil(t, status.EndedAt)

	assert.Equal(t, 4, warmer.callCount())
	assert.True(t, hub.seen(EventWarmupProgress))
	assert.True(t, hub.seen(EventWarmupComplete))
	assert.False(t, hub.seen(EventWarmupFailed))
}

func TestWarmupService_Start_MinuteFanout(t *testing.T) {
	warmer := &fakeWarmer{}
	svc := NewWarmupService(warmer, &fakeLister{}, &fakeHub{}, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"ES"},
		Groupings: []string{"minute"},
	})
	require.NoError(t, err)

	waitIdle(t, svc)

	// One task per hour of the session.
	assert.Equal(t, 24, svc.Status().Total)
	assert.Equal(t, 24, warmer.callCount())
}

func TestWarmupService_Start_ResolvesProducts(t *testing.T) {
	warmer := &fakeWarmer{}
	lister := &fakeLister{products: []domain.Product{{Symbol: "ES"}, {Symbol: "CL"}}}
	svc := NewWarmupService(warmer, lister, &fakeHub{}, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{Groupings: []string{"hour"}})
	require.NoError(t, err)

	waitIdle(t, svc)
	assert.Equal(t, 2, warmer.callCount())
}

func TestWarmupService_Start_NoProducts(t *testing.T) {
	svc := NewWarmupService(&fakeWarmer{}, &fakeLister{}, &fakeHub{}, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{Groupings: []string{"hour"}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestWarmupService_Start_AlreadyRunning(t *testing.T) {
	gate := make(chan struct{})
	warmer := &fakeWarmer{gate: gate}
	svc := NewWarmupService(warmer, &fakeLister{}, &fakeHub{}, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"ES"},
		Groupings: []string{"hour"},
	})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"NQ"},
		Groupings: []string{"hour"},
	})
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	close(gate)
	waitIdle(t, svc)

	// The slot frees up once the job finishes.
	_, err = svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"NQ"},
		Groupings: []string{"hour"},
	})
	assert.NoError(t, err)
	waitIdle(t, svc)
}

func TestWarmupService_Stop(t *testing.T) {
	gate := make(chan struct{})
	warmer := &fakeWarmer{gate: gate}
	hub := &fakeHub{}
	svc := NewWarmupService(warmer, &fakeLister{}, hub, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"ES", "NQ", "CL"},
		Groupings: []string{"hour"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Stop())
	waitIdle(t, svc)

	status := svc.Status()
	assert.Equal(t, "canceled", status.Error)
	assert.True(t, hub.seen(EventWarmupFailed))
	assert.False(t, hub.seen(EventWarmupComplete))
}

func TestWarmupService_Stop_NotRunning(t *testing.T) {
	svc := NewWarmupService(&fakeWarmer{}, &fakeLister{}, &fakeHub{}, nil, discardLogger())
	assert.ErrorIs(t, svc.Stop(), ErrJobNotRunning)
}

func TestWarmupService_TaskFailures(t *testing.T) {
	warmer := &fakeWarmer{fail: func(product string) error {
		if product == "EMPTY" {
			return ErrNoData
		}
		return nil
	}}
	hub := &fakeHub{}
	svc := NewWarmupService(warmer, &fakeLister{}, hub, nil, discardLogger())

	_, err := svc.Start(context.Background(), api.WarmupRequest{
		Products:  []string{"ES", "EMPTY"},
		Groupings: []string{"hour"},
	})
	require.NoError(t, err)

	waitIdle(t, svc)

	status := svc.Status()
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 1, status.Failed)
	assert.True(t, hub.seen(EventWarmupComplete), "skipped products do not fail the job")
}
