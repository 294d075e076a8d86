package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/cache"
	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/lock"
	edisvc "github.com/Additional-Code/edisync/internal/service/edi"
)

type fakePoller struct {
	mu     sync.Mutex
	calls  []edi.DocumentType
	fail   map[edi.DocumentType]error
	panics map[edi.DocumentType]bool
	block  chan struct{}
}

func (f *fakePoller) PollDocumentType(_ context.Context, code edi.DocumentType) (edisvc.BatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.panics[code] {
		panic("provider client exploded")
	}
	if err := f.fail[code]; err != nil {
		return edisvc.BatchResult{DocumentType: code}, err
	}
	return edisvc.BatchResult{DocumentType: code, Success: true, Count: 2, Processed: 2}, nil
}

type panickingLocker struct{}

func (panickingLocker) Obtain(context.Context, string, time.Duration) (lock.Lease, error) {
	panic("lock backend corrupted")
}

func TestFetchEdiUpdatesRunsStagesInPriorityOrder(t *testing.T) {
	poller := &fakePoller{}
	s := New(poller, lock.NewLocal(), cache.NewMemory(time.Hour), zap.NewNop(), Options{})

	result := s.FetchEdiUpdates(context.Background())
	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, []edi.DocumentType{edi.InventoryAdvice, edi.OrderConfirmation, edi.ShippingNotice, edi.Invoice}, poller.calls)
	assert.Len(t, result.Results, 4)
	assert.Equal(t, 2, result.Results["shipping_notice"].Processed)
	assert.Regexp(t, `^\d+\.\d{2}s$`, result.ProcessingTime)
}

func TestFailingStageDoesNotAbortCycle(t *testing.T) {
	poller := &fakePoller{
		fail:   map[edi.DocumentType]error{edi.OrderConfirmation: errors.New("connection refused")},
		panics: map[edi.DocumentType]bool{edi.ShippingNotice: true},
	}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{})

	result := s.FetchEdiUpdates(context.Background())
	require.True(t, result.Success)
	require.Len(t, result.Results, 4)

	confirmations := result.Results["order_confirmation"]
	assert.False(t, confirmations.Success)
	require.NotNil(t, confirmations.Error)
	assert.Equal(t, "connection refused", confirmations.Error.Message)

	notices := result.Results["shipping_notice"]
	assert.False(t, notices.Success)
	require.NotNil(t, notices.Error)
	assert.Contains(t, notices.Error.Message, "panicked")

	assert.True(t, result.Results["inventory_update"].Success)
	assert.True(t, result.Results["invoice"].Success)
}

func TestOrchestrationFailureIsReturned(t *testing.T) {
	s := New(&fakePoller{}, panickingLocker{}, nil, zap.NewNop(), Options{})

	result := s.FetchEdiUpdates(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "lock backend corrupted")
	assert.NotEmpty(t, result.ProcessingTime)
}

func TestOverlappingCyclesAreRejected(t *testing.T) {
	poller := &fakePoller{block: make(chan struct{})}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{Stages: []edi.DocumentType{edi.Invoice}})

	done := make(chan SyncResult)
	go func() {
		done <- s.FetchEdiUpdates(context.Background())
	}()

	require.Eventually(t, func() bool {
		poller.mu.Lock()
		defer poller.mu.Unlock()
		return len(poller.calls) == 1
	}, time.Second, 5*time.Millisecond)

	second := s.FetchEdiUpdates(context.Background())
	assert.False(t, second.Success)
	assert.Equal(t, ErrAlreadyRunning.Error(), second.Error)

	close(poller.block)
	first := <-done
	assert.True(t, first.Success)

	third := s.FetchEdiUpdates(context.Background())
	assert.True(t, third.Success)
}

func TestPollOneWaitsForRunningCycle(t *testing.T) {
	poller := &fakePoller{block: make(chan struct{})}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{Stages: []edi.DocumentType{edi.InventoryAdvice}})

	done := make(chan SyncResult)
	go func() {
		done <- s.FetchEdiUpdates(context.Background())
	}()
	require.Eventually(t, func() bool {
		poller.mu.Lock()
		defer poller.mu.Unlock()
		return len(poller.calls) == 1
	}, time.Second, 5*time.Millisecond)

	res, err := s.PollOne(context.Background(), edi.Invoice)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, edi.Invoice, res.DocumentType)

	close(poller.block)
	require.True(t, (<-done).Success)

	poller.block = nil
	res, err = s.PollOne(context.Background(), edi.Invoice)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []edi.DocumentType{edi.InventoryAdvice, edi.Invoice}, poller.calls)
}

func TestPollOneHoldsLockAgainstCycles(t *testing.T) {
	poller := &fakePoller{block: make(chan struct{})}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{})

	done := make(chan error)
	go func() {
		_, err := s.PollOne(context.Background(), edi.Invoice)
		done <- err
	}()
	require.Eventually(t, func() bool {
		poller.mu.Lock()
		defer poller.mu.Unlock()
		return len(poller.calls) == 1
	}, time.Second, 5*time.Millisecond)

	cycle := s.FetchEdiUpdates(context.Background())
	assert.False(t, cycle.Success)
	assert.Equal(t, ErrAlreadyRunning.Error(), cycle.Error)

	close(poller.block)
	require.NoError(t, <-done)
}

func TestPollOneRejectsOutboundTypes(t *testing.T) {
	poller := &fakePoller{}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{})

	_, err := s.PollOne(context.Background(), edi.PurchaseOrder)
	require.ErrorIs(t, err, edisvc.ErrUnsupportedDocument)
	assert.Empty(t, poller.calls)
}

func TestProcessingTimeIsMeasured(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234 * time.Millisecond)}
	now := func() time.Time {
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}
	s := New(&fakePoller{}, nil, nil, zap.NewNop(), Options{Now: now})

	result := s.FetchEdiUpdates(context.Background())
	assert.Equal(t, "1.23s", result.ProcessingTime)
	assert.True(t, base.Equal(result.StartedAt))
}

func TestLastResultIsCached(t *testing.T) {
	store := cache.NewMemory(time.Hour)
	s := New(&fakePoller{}, nil, store, zap.NewNop(), Options{})

	_, ok, err := s.LastResult(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	s.FetchEdiUpdates(context.Background())

	last, ok, err := s.LastResult(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Success)
	assert.Equal(t, edi.Invoice, last.Results["invoice"].DocumentType)
}

func TestRunnerTicks(t *testing.T) {
	poller := &fakePoller{}
	s := New(poller, lock.NewLocal(), nil, zap.NewNop(), Options{Stages: []edi.DocumentType{edi.InventoryAdvice}})
	cfg := config.Config{EDI: config.EDI{PollInterval: 10 * time.Millisecond, SchedulerEnabled: true}}
	r := NewRunner(s, cfg, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool {
		poller.mu.Lock()
		defer poller.mu.Unlock()
		return len(poller.calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunnerDisabled(t *testing.T) {
	r := NewRunner(New(&fakePoller{}, nil, nil, zap.NewNop(), Options{}), config.Config{}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	assert.Nil(t, r.cancel)
	require.NoError(t, r.Stop(context.Background()))
}
