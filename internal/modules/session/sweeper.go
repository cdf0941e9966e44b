package session

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically evicts idle sessions from a Cache.
type Sweeper struct {
	cron  *cron.Cron
	cache *Cache
	idle  time.Duration
}

func NewSweeper(cache *Cache, idle time.Duration) *Sweeper {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Sweeper{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		cache: cache,
		idle:  idle,
	}
}

func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("session sweeper: schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	log.Printf("session sweeper started (schedule=%s idle=%s)", schedule, s.idle)
	return nil
}

func (s *Sweeper) run() {
	if n := s.cache.Sweep(s.idle); n > 0 {
		log.Printf("session sweeper evicted %d idle sessions (remaining=%d)", n, s.cache.Len())
	}
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
