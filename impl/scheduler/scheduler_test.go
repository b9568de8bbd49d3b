package scheduler

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
)

type fakeStore struct {
	mu     sync.Mutex
	groups []*entity.Group
	wipes  int
}

func (f *fakeStore) GetGroups() ([]*entity.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, nil
}

func (f *fakeStore) WipeCycle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wipes++
	return nil
}

func (f *fakeStore) wipeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wipes
}

type fakeDistributor struct {
	mu   sync.Mutex
	runs []string
}

func (f *fakeDistributor) DistributeGroup(group *entity.Group, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, group.Id)
	return nil
}

func (f *fakeDistributor) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakePenalty struct {
	mu   sync.Mutex
	runs int
}

func (f *fakePenalty) Run(_ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return nil
}

func (f *fakePenalty) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func testScheduler(store *fakeStore, dist *fakeDistributor, pen *fakePenalty) *Scheduler {
	conf := &config.Config{
		Defaults: config.GroupDefaults{
			MaxMembers:       50,
			DistributionDays: 7,
			DailyViewLimit:   5,
			SendTime:         "10:00",
		},
		Penalty: config.PenaltyConfig{CheckTime: "06:00", WarnStreak: 1, SuspendStreak: 2, PurgeStreak: 3, SuspensionDays: 2},
		Reset:   config.ResetConfig{DayOfMonth: 1, Time: "03:00"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, dist, pen, conf, log)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 9, day, hour, minute, 0, 0, time.UTC)
}

func TestTick_FiresGroupAtSendTime(t *testing.T) {
	store := &fakeStore{groups: []*entity.Group{
		{Id: "g1", SchedulerActive: true, SendTime: "10:30"},
	}}
	dist := &fakeDistributor{}
	pen := &fakePenalty{}
	s := testScheduler(store, dist, pen)

	s.Tick(at(2, 10, 29))
	assert.Equal(t, 0, dist.runCount(), "before the slot nothing fires")

	s.Tick(at(2, 10, 30))
	require.Eventually(t, func() bool { return dist.runCount() == 1 }, time.Second, 5*time.Millisecond)

	// later ticks the same day must not re-fire
	s.Tick(at(2, 10, 31))
	s.Tick(at(2, 18, 0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dist.runCount())
}

func TestTick_MissedSlotStillFiresLaterSameDay(t *testing.T) {
	store := &fakeStore{groups: []*entity.Group{
		{Id: "g1", SchedulerActive: true, SendTime: "10:00"},
	}}
	dist := &fakeDistributor{}
	s := testScheduler(store, dist, &fakePenalty{})

	// first observed tick is already past the slot (downtime, drift)
	s.Tick(at(2, 14, 7))
	require.Eventually(t, func() bool { return dist.runCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTick_IndependentGroupSlots(t *testing.T) {
	store := &fakeStore{groups: []*entity.Group{
		{Id: "g1", SchedulerActive: true, SendTime: "09:00"},
		{Id: "g2", SchedulerActive: true, SendTime: "11:00"},
		{Id: "g3", SchedulerActive: false, SendTime: "09:00"},
	}}
	dist := &fakeDistributor{}
	s := testScheduler(store, dist, &fakePenalty{})

	s.Tick(at(2, 9, 0))
	require.Eventually(t, func() bool { return dist.runCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Tick(at(2, 11, 0))
	require.Eventually(t, func() bool { return dist.runCount() == 2 }, time.Second, 5*time.Millisecond)

	dist.mu.Lock()
	runs := append([]string(nil), dist.runs...)
	dist.mu.Unlock()
	assert.NotContains(t, runs, "g3", "inactive group never fires")
}

func TestTick_PenaltyOncePerDay(t *testing.T) {
	store := &fakeStore{}
	pen := &fakePenalty{}
	s := testScheduler(store, &fakeDistributor{}, pen)

	s.Tick(at(2, 5, 59))
	assert.Equal(t, 0, pen.runCount())

	s.Tick(at(2, 6, 0))
	require.Eventually(t, func() bool { return pen.runCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Tick(at(2, 6, 1))
	s.Tick(at(2, 23, 59))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, pen.runCount())

	// next calendar day fires again
	s.Tick(at(3, 6, 0))
	require.Eventually(t, func() bool { return pen.runCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTick_MonthlyResetOnConfiguredDay(t *testing.T) {
	store := &fakeStore{}
	s := testScheduler(store, &fakeDistributor{}, &fakePenalty{})

	s.Tick(at(2, 3, 0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, store.wipeCount(), "only fires on the configured day of month")

	s.Tick(at(1, 3, 0))
	require.Eventually(t, func() bool { return store.wipeCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Tick(at(1, 3, 1))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, store.wipeCount())
}

func TestStartStop(t *testing.T) {
	s := testScheduler(&fakeStore{}, &fakeDistributor{}, &fakePenalty{})
	s.Start()
	s.Stop()
}
