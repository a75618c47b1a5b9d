package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/driver"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/sguter90/pimaestro/pkg/output"
	"github.com/sguter90/pimaestro/pkg/store"
)

// DefaultReadTimeout bounds a single driver read
const DefaultReadTimeout = 5 * time.Second

// Scheduler errors
var (
	ErrAlreadyScheduled = errors.New("sensor already scheduled")
	ErrNotScheduled     = errors.New("sensor not scheduled")
	ErrInvalidInterval  = errors.New("interval must be positive")
	ErrShutdown         = errors.New("scheduler is shut down")
)

// Options configures a Scheduler
type Options struct {
	ReadTimeout time.Duration
	Outputs     []output.Output
	Logger      *logger.Logger
}

// Diagnostics are the per-sensor polling counters
type Diagnostics struct {
	Reads           uint64    `json:"reads"`
	Successes       uint64    `json:"successes"`
	Transient       uint64    `json:"transient"`
	Timeouts        uint64    `json:"timeouts"`
	Invalid         uint64    `json:"invalid"`
	StoreFailures   uint64    `json:"store_failures"`
	PublishFailures uint64    `json:"publish_failures"`
	Skipped         uint64    `json:"skipped"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorAt     time.Time `json:"last_error_at,omitempty"`
	LastSuccess     time.Time `json:"last_success,omitempty"`
}

// Status is a snapshot of one polling loop
type Status struct {
	State       models.SensorState `json:"state"`
	Diagnostics Diagnostics        `json:"diagnostics"`
}

// Scheduler runs one fixed-rate polling loop per sensor. A failing sensor
// never affects the others.
type Scheduler struct {
	store   store.Appender
	factory driver.Factory
	opts    Options
	logger  *logger.Logger

	mu     sync.Mutex
	loops  map[uuid.UUID]*loop
	closed bool
}

// New creates a scheduler writing readings to st and mirroring them to opts.Outputs
func New(st store.Appender, factory driver.Factory, opts Options) *Scheduler {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		store:   st,
		factory: factory,
		opts:    opts,
		logger:  log.WithComponent("scheduler"),
		loops:   make(map[uuid.UUID]*loop),
	}
}

// Schedule starts polling a sensor
func (s *Scheduler) Schedule(sensor models.Sensor) error {
	if sensor.Interval <= 0 {
		return errors.Wrapf(ErrInvalidInterval, "sensor %s", sensor.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShutdown
	}
	if _, ok := s.loops[sensor.ID]; ok {
		return errors.Wrapf(ErrAlreadyScheduled, "sensor %s", sensor.ID)
	}

	l := newLoop(s, sensor)
	s.loops[sensor.ID] = l
	go l.run()

	return nil
}

// Unschedule stops the loop of a sensor and waits until the in-flight read
// completes or times out
func (s *Scheduler) Unschedule(id uuid.UUID) error {
	s.mu.Lock()
	l, ok := s.loops[id]
	if ok {
		delete(s.loops, id)
	}
	s.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrNotScheduled, "sensor %s", id)
	}

	l.halt()
	return nil
}

// Status returns the state and counters of a scheduled sensor
func (s *Scheduler) Status(id uuid.UUID) (Status, bool) {
	s.mu.Lock()
	l, ok := s.loops[id]
	s.mu.Unlock()

	if !ok {
		return Status{}, false
	}
	return l.snapshot(), true
}

// Shutdown stops every loop and waits for them. Later Schedule calls fail.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	loops := make([]*loop, 0, len(s.loops))
	for id, l := range s.loops {
		loops = append(loops, l)
		delete(s.loops, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l *loop) {
			defer wg.Done()
			l.halt()
		}(l)
	}
	wg.Wait()

	s.logger.Info("Scheduler stopped")
}
