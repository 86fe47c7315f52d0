package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
)

func TestTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewTracker(100, 0, ActionReject, zap.NewNop())

	bt.Record(100)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded, got %v", err)
	}
}

func TestTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewTracker(100, 0, ActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestTracker_MonthlyReject(t *testing.T) {
	bt := NewTracker(0, 500, ActionReject, zap.NewNop())

	bt.Record(500)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded for monthly limit, got %v", err)
	}
}

func TestTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewTracker(0, 0, ActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining for unlimited, got %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestTracker_Remaining(t *testing.T) {
	bt := NewTracker(1000, 10000, ActionWarn, zap.NewNop())

	bt.Record(300)

	if daily := bt.RemainingDaily(); daily != 700 {
		t.Errorf("expected daily remaining 700, got %d", daily)
	}
	if monthly := bt.RemainingMonthly(); monthly != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", monthly)
	}

	bt.Record(5000)
	if daily := bt.RemainingDaily(); daily != 0 {
		t.Errorf("expected daily remaining clamped to 0, got %d", daily)
	}
}

func TestTracker_IgnoresNonPositive(t *testing.T) {
	bt := NewTracker(1000, 0, ActionWarn, zap.NewNop())
	bt.Record(0)
	bt.Record(-5)
	if bt.DailyUsed() != 0 {
		t.Errorf("expected 0 used, got %d", bt.DailyUsed())
	}
}

func TestTracker_ResetsOnDayRollover(t *testing.T) {
	bt := NewTracker(1000, 10000, ActionReject, zap.NewNop())
	clock := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	bt.now = func() time.Time { return clock }
	bt.lastDayReset = truncateToDay(clock)
	bt.lastMonthReset = truncateToMonth(clock)

	bt.Record(1000)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected budget exceeded before rollover")
	}

	clock = clock.Add(2 * time.Minute)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected daily reset after midnight, got %v", err)
	}
	if bt.MonthlyUsed() != 1000 {
		t.Errorf("monthly counter must survive a day rollover, got %d", bt.MonthlyUsed())
	}
}

func TestParseAction(t *testing.T) {
	if ParseAction("reject") != ActionReject {
		t.Error("expected reject")
	}
	if ParseAction("") != ActionWarn || ParseAction("warn") != ActionWarn {
		t.Error("expected warn default")
	}
}

// --- Mock Store ---

type mockStore struct {
	mu      sync.Mutex
	daily   int64
	monthly int64
	getErr  error
	addErr  error
}

func (m *mockStore) AddDaily(_ context.Context, _ time.Time, tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.daily += tokens
	return nil
}

func (m *mockStore) AddMonthly(_ context.Context, _ time.Time, tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.monthly += tokens
	return nil
}

func (m *mockStore) Daily(_ context.Context, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.daily, m.getErr
}

func (m *mockStore) Monthly(_ context.Context, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monthly, m.getErr
}

// --- Persistence tests ---

func TestTracker_WithStore_LoadsValues(t *testing.T) {
	store := &mockStore{daily: 300, monthly: 5000}

	bt := NewTracker(1000, 10000, ActionReject, zap.NewNop()).WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestTracker_WithStore_LoadErrorKeepsZero(t *testing.T) {
	store := &mockStore{daily: 300, getErr: errors.New("conn refused")}

	bt := NewTracker(1000, 10000, ActionReject, zap.NewNop()).WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 {
		t.Errorf("expected daily_used=0 on load error, got %d", bt.DailyUsed())
	}
}

func TestTracker_Record_PersistsToStore(t *testing.T) {
	store := &mockStore{}
	bt := NewTracker(10000, 100000, ActionWarn, zap.NewNop()).WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.daily != 300 || store.monthly != 300 {
		t.Errorf("expected store 300/300, got %d/%d", store.daily, store.monthly)
	}
}

func TestTracker_Record_StoreErrorKeepsMemory(t *testing.T) {
	store := &mockStore{addErr: errors.New("readonly")}
	bt := NewTracker(1000, 0, ActionWarn, zap.NewNop()).WithStore(context.Background(), store)

	bt.Record(42)

	if bt.DailyUsed() != 42 {
		t.Errorf("in-memory counter must update despite store error, got %d", bt.DailyUsed())
	}
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	bt := NewTracker(0, 0, ActionWarn, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Record(2)
		}()
	}
	wg.Wait()

	if bt.DailyUsed() != 100 {
		t.Errorf("expected 100, got %d", bt.DailyUsed())
	}
}
