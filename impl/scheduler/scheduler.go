// Package scheduler drives the three independent daily triggers from one
// minute-resolution ticker: per-group distribution at each group's send
// time, the penalty checkpoint, and the monthly cycle reset. Triggers never
// block each other; a slow distribution for one group cannot delay another
// group's slot.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/lib/clock"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

const tickInterval = time.Minute

type Distributor interface {
	DistributeGroup(group *entity.Group, now time.Time) error
}

type PenaltyRunner interface {
	Run(now time.Time) error
}

// Store defines the storage operations the driver depends on.
// Implemented by internal/database/mongo.go.
type Store interface {
	GetGroups() ([]*entity.Group, error)
	WipeCycle() error
}

type Scheduler struct {
	db       Store
	dist     Distributor
	pen      PenaltyRunner
	conf     *config.Config
	log      *slog.Logger
	interval time.Duration

	mu           sync.Mutex
	groupBusy    map[string]bool
	groupLastRun map[string]string // group id → date of last fired run
	penaltyBusy  bool
	lastPenalty  string // tick throttle only; per-day idempotency lives in the penalty records
	resetBusy    bool
	lastReset    string

	stopCh chan struct{}
	done   chan struct{}
}

func New(db Store, dist Distributor, pen PenaltyRunner, conf *config.Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		db:           db,
		dist:         dist,
		pen:          pen,
		conf:         conf,
		log:          log.With(sl.Module("scheduler")),
		interval:     tickInterval,
		groupBusy:    make(map[string]bool),
		groupLastRun: make(map[string]string),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.log.Info("scheduler started", slog.String("interval", s.interval.String()))
		for {
			select {
			case <-ticker.C:
				s.Tick(time.Now())
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.done
}

// Tick evaluates every trigger against the current wall clock. Slots are
// matched with >= plus a last-fired-day guard, so a tick lost to drift or
// downtime still fires the job later the same day instead of skipping it.
func (s *Scheduler) Tick(now time.Time) {
	slot := clock.Slot(now)
	today := clock.Day(now)

	groups, err := s.db.GetGroups()
	if err != nil {
		s.log.Error("loading groups", sl.Err(err))
	}
	for _, group := range groups {
		settings := *group
		s.conf.Defaults.Apply(&settings)
		if !settings.Eligible() || slot < settings.SendTime {
			continue
		}
		s.fireDistribution(&settings, now, today)
	}

	if slot >= s.conf.Penalty.CheckTime {
		s.firePenalty(now, today)
	}

	if now.Day() == s.conf.Reset.DayOfMonth && slot >= s.conf.Reset.Time {
		s.fireReset(today)
	}
}

func (s *Scheduler) fireDistribution(group *entity.Group, now time.Time, today string) {
	s.mu.Lock()
	if s.groupBusy[group.Id] || s.groupLastRun[group.Id] == today {
		s.mu.Unlock()
		return
	}
	s.groupBusy[group.Id] = true
	s.groupLastRun[group.Id] = today
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.groupBusy[group.Id] = false
			s.mu.Unlock()
		}()
		err := s.dist.DistributeGroup(group, now)
		if err != nil {
			s.log.Error("distribution run failed",
				slog.String("group", group.Id),
				sl.Err(err),
			)
		}
	}()
}

func (s *Scheduler) firePenalty(now time.Time, today string) {
	s.mu.Lock()
	if s.penaltyBusy || s.lastPenalty == today {
		s.mu.Unlock()
		return
	}
	s.penaltyBusy = true
	s.lastPenalty = today
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.penaltyBusy = false
			s.mu.Unlock()
		}()
		err := s.pen.Run(now)
		if err != nil {
			s.log.Error("penalty run failed", sl.Err(err))
		}
	}()
}

func (s *Scheduler) fireReset(today string) {
	s.mu.Lock()
	if s.resetBusy || s.lastReset == today {
		s.mu.Unlock()
		return
	}
	s.resetBusy = true
	s.lastReset = today
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.resetBusy = false
			s.mu.Unlock()
		}()
		err := s.db.WipeCycle()
		if err != nil {
			s.log.Error("cycle reset failed", sl.Err(err))
			return
		}
		s.log.Info("cycle reset complete", slog.String("date", today))
	}()
}
