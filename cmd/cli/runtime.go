package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/database"
	"github.com/sguter90/pimaestro/pkg/driver"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/sguter90/pimaestro/pkg/output"
	"github.com/sguter90/pimaestro/pkg/output/console"
	"github.com/sguter90/pimaestro/pkg/output/influx"
	"github.com/sguter90/pimaestro/pkg/output/mqtt"
	"github.com/sguter90/pimaestro/pkg/scheduler"
	"github.com/sguter90/pimaestro/pkg/sensors"
	"github.com/sguter90/pimaestro/pkg/service"
	"github.com/sguter90/pimaestro/pkg/store"
)

// Runtime wires the board, the store and, when polling, the scheduler and outputs
type Runtime struct {
	BoardFile *config.BoardFile
	Board     *board.Board
	Store     store.Store
	Scheduler *scheduler.Scheduler
	Sensors   *sensors.Registry
	Service   *service.Service
	Outputs   []output.Output

	closeStore func() error
	logger     *logger.Logger
}

// InitRuntime loads the board file and builds every component. With poll
// unset the sensors are registered without being polled.
func InitRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger, poll bool) (*Runtime, error) {
	bf, err := config.LoadBoardFile(cfg.BoardFile)
	if err != nil {
		return nil, err
	}

	b, err := service.NewBoard(bf)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{BoardFile: bf, Board: b, logger: log}

	if err := rt.openStore(ctx, cfg, log); err != nil {
		return nil, err
	}

	var poller sensors.Poller
	var status service.StatusProvider
	if poll {
		outputs, err := openOutputs(cfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Outputs = outputs

		factory := driver.NewFactory(cfg.Scheduler.DriverMode == config.DriverModeSimulation)
		rt.Scheduler = scheduler.New(rt.Store, factory, scheduler.Options{
			ReadTimeout: cfg.Scheduler.ReadTimeout,
			Outputs:     outputs,
			Logger:      log,
		})
		poller, status = rt.Scheduler, rt.Scheduler
	}

	rt.Sensors = sensors.NewRegistry(b, poller, log)
	rt.Service = service.New(b, rt.Sensors, status, rt.Store, log)

	for _, err := range rt.Service.Bootstrap(ctx, bf) {
		log.WarnWithError(err, "Board configuration item skipped")
	}

	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Store != config.StorePostgres {
		rt.Store = store.NewMemory()
		rt.closeStore = func() error { return nil }
		return nil
	}

	rs, err := database.NewReadingStore(&cfg.Database, log)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	if err := rs.Init(ctx); err != nil {
		rs.Close()
		return err
	}
	rt.Store = rs
	rt.closeStore = rs.Close
	return nil
}

func openOutputs(cfg *config.Config) ([]output.Output, error) {
	var outputs []output.Output

	if cfg.ConsoleOutput {
		outputs = append(outputs, console.New(os.Stdout))
	}
	if cfg.MQTT.Server != "" {
		m, err := mqtt.New(cfg.MQTT)
		if err != nil {
			closeOutputs(outputs)
			return nil, err
		}
		outputs = append(outputs, m)
	}
	if cfg.Influx.URL != "" {
		outputs = append(outputs, influx.New(cfg.Influx))
	}

	return outputs, nil
}

func closeOutputs(outputs []output.Output) {
	for _, o := range outputs {
		o.Close()
	}
}

// Close deregisters every sensor, which stops its polling, then releases
// the board and closes outputs and the store
func (rt *Runtime) Close() {
	if rt.Service != nil {
		rt.Service.Teardown()
	}
	if rt.Scheduler != nil {
		rt.Scheduler.Shutdown()
	}
	closeOutputs(rt.Outputs)
	if rt.closeStore != nil {
		if err := rt.closeStore(); err != nil {
			rt.logger.WarnWithError(err, "Failed to close store")
		}
	}
}

// describe is a short one-line summary for startup logs
func (rt *Runtime) describe() string {
	return fmt.Sprintf("%s (%s): %d ports, %d sensors",
		rt.Board.Info.Name, rt.Board.Info.Model, len(rt.Board.Ports.Ports()), len(rt.Sensors.List()))
}
