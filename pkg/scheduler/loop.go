package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/driver"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/sguter90/pimaestro/pkg/output"
)

type readOutcome struct {
	result driver.Result
	err    error
}

// loop polls one sensor. The driver is only touched by the loop goroutine
// and by at most one outstanding read.
type loop struct {
	s      *Scheduler
	sensor models.Sensor
	logger *logger.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	drv driver.Driver
	// inflight holds a read that outlived its timeout
	inflight chan readOutcome

	mu     sync.Mutex
	status Status
}

func newLoop(s *Scheduler, sensor models.Sensor) *loop {
	return &loop{
		s:      s,
		sensor: sensor,
		logger: s.logger.WithFields(map[string]interface{}{
			"sensor_id": sensor.ID.String(),
			"sensor":    sensor.Name,
			"kind":      string(sensor.Kind),
		}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		status: Status{State: models.SensorStateIdle},
	}
}

func (l *loop) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

func (l *loop) snapshot() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *loop) update(fn func(st *Status)) {
	l.mu.Lock()
	fn(&l.status)
	l.mu.Unlock()
}

func (l *loop) fail(fn func(d *Diagnostics), err error) {
	l.update(func(st *Status) {
		fn(&st.Diagnostics)
		st.Diagnostics.LastError = err.Error()
		st.Diagnostics.LastErrorAt = time.Now().UTC()
	})
}

func (l *loop) run() {
	defer close(l.done)
	defer l.release()

	l.update(func(st *Status) { st.State = models.SensorStateRunning })
	l.logger.Info(fmt.Sprintf("Polling every %s", l.sensor.Interval))

	interval := l.sensor.Interval
	next := time.Now().Add(interval)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-l.stop:
			l.update(func(st *Status) { st.State = models.SensorStateStopped })
			return
		case <-timer.C:
		}

		tick := next
		next = next.Add(interval)

		if l.busy() {
			l.update(func(st *Status) { st.Diagnostics.Skipped++ })
			l.logger.Warn("Previous read still running, skipping tick")
		} else if fatal := l.poll(tick); fatal {
			l.update(func(st *Status) { st.State = models.SensorStateDegraded })
			return
		}

		now := time.Now()
		for !next.After(now) {
			next = next.Add(interval)
			l.update(func(st *Status) { st.Diagnostics.Skipped++ })
		}
		timer.Reset(time.Until(next))
	}
}

// busy reports whether an abandoned read still owns the driver
func (l *loop) busy() bool {
	if l.inflight == nil {
		return false
	}
	select {
	case <-l.inflight:
		l.inflight = nil
		return false
	default:
		return true
	}
}

// release closes the driver, deferring to the abandoned read if there is one
func (l *loop) release() {
	if l.drv == nil {
		return
	}
	drv, inflight := l.drv, l.inflight
	l.drv, l.inflight = nil, nil

	if inflight == nil {
		l.closeDriver(drv)
		return
	}
	go func() {
		<-inflight
		l.closeDriver(drv)
	}()
}

func (l *loop) closeDriver(drv driver.Driver) {
	if err := drv.Close(); err != nil {
		l.logger.WarnWithError(err, "Failed to close driver")
	}
}

// poll performs one read and records its outcome. It reports whether the
// sensor hit a fatal fault.
func (l *loop) poll(tick time.Time) bool {
	if l.drv == nil {
		drv, err := l.s.factory(l.sensor)
		if err != nil {
			if driver.IsFatal(err) {
				l.fail(func(d *Diagnostics) {}, err)
				l.logger.ErrorWithError(err, "Driver unavailable, sensor degraded")
				return true
			}
			l.fail(func(d *Diagnostics) { d.Transient++ }, err)
			l.logger.WarnWithError(err, "Driver setup failed")
			return false
		}
		l.drv = drv
	}

	l.update(func(st *Status) { st.Diagnostics.Reads++ })

	ctx, cancel := context.WithTimeout(context.Background(), l.s.opts.ReadTimeout)
	defer cancel()

	ch := make(chan readOutcome, 1)
	go func(drv driver.Driver) {
		defer func() {
			if r := recover(); r != nil {
				ch <- readOutcome{err: driver.Transient(errors.Errorf("driver panic: %v", r))}
			}
		}()
		res, err := drv.Read(ctx)
		ch <- readOutcome{result: res, err: err}
	}(l.drv)

	var out readOutcome
	select {
	case out = <-ch:
	case <-ctx.Done():
		l.inflight = ch
		err := errors.Errorf("read timed out after %s", l.s.opts.ReadTimeout)
		l.fail(func(d *Diagnostics) { d.Timeouts++ }, err)
		l.logger.Warn(err.Error())
		return false
	}

	switch {
	case out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		l.fail(func(d *Diagnostics) { d.Timeouts++ }, out.err)
		l.logger.WarnWithError(out.err, "Read timed out")
		return false
	case out.err != nil && driver.IsFatal(out.err):
		l.fail(func(d *Diagnostics) {}, out.err)
		l.logger.ErrorWithError(out.err, "Fatal read fault, sensor degraded")
		return true
	case out.err != nil:
		l.fail(func(d *Diagnostics) { d.Transient++ }, out.err)
		l.logger.WarnWithError(out.err, "Transient read fault")
		return false
	case !out.result.Valid:
		err := errors.Errorf("invalid reading: %s", out.result.Reason)
		l.fail(func(d *Diagnostics) { d.Invalid++ }, err)
		l.logger.Warn(err.Error())
		return false
	}

	readings, err := l.readings(out.result, tick)
	if err != nil {
		l.fail(func(d *Diagnostics) { d.Invalid++ }, err)
		l.logger.Warn(err.Error())
		return false
	}

	l.update(func(st *Status) {
		st.Diagnostics.Successes++
		st.Diagnostics.LastSuccess = tick
	})

	l.persist(readings)
	l.publish(readings)
	return false
}

// readings stamps every declared channel with the tick time
func (l *loop) readings(res driver.Result, tick time.Time) ([]models.Reading, error) {
	readings := make([]models.Reading, 0, len(l.sensor.Channels))
	for _, ch := range l.sensor.Channels {
		v, ok := res.Values[ch.Name]
		if !ok {
			return nil, errors.Errorf("invalid reading: channel %s missing", ch.Name)
		}
		readings = append(readings, models.Reading{ChannelID: ch.ID, Value: v, DateUTC: tick.UTC()})
	}
	return readings, nil
}

func (l *loop) persist(readings []models.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), l.s.opts.ReadTimeout)
	defer cancel()

	for _, r := range readings {
		if err := l.s.store.Append(ctx, r); err != nil {
			l.fail(func(d *Diagnostics) { d.StoreFailures++ }, err)
			l.logger.ErrorWithError(err, "Failed to store reading")
		}
	}
}

func (l *loop) publish(readings []models.Reading) {
	if len(l.s.opts.Outputs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.s.opts.ReadTimeout)
	defer cancel()

	sample := output.Sample{Sensor: l.sensor, Readings: readings}
	for _, out := range l.s.opts.Outputs {
		if err := out.Publish(ctx, sample); err != nil {
			l.fail(func(d *Diagnostics) { d.PublishFailures++ }, err)
			l.logger.WarnWithError(err, "Failed to publish readings")
		}
	}
}
