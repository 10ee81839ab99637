package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/serialplot/internal/config"
	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/export"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/metrics"
	"codeberg.org/mutker/serialplot/internal/pid"
	"codeberg.org/mutker/serialplot/internal/serialport"
	"codeberg.org/mutker/serialplot/internal/series"
	"codeberg.org/mutker/serialplot/internal/settings"
	"codeberg.org/mutker/serialplot/internal/stream"
	"codeberg.org/mutker/serialplot/internal/telemetry"
)

const (
	stopTimeout   = 5 * time.Second
	recordTimeout = 2 * time.Second
)

type app struct {
	cfg *config.Config
	log logger.Logger

	open      serialport.Opener
	lockDir   string
	lock      *pid.Lock
	recorder  metrics.SampleRecorder
	collector telemetry.Collector
	server    *telemetry.Server

	set       *series.Set
	assembler *series.Assembler
	sessions  stream.Manager
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	recorder, err := metrics.NewService(metrics.Config{
		DBPath:       cfg.MetricsDB,
		BatchSize:    metrics.DefaultConfig().BatchSize,
		BatchTimeout: metrics.DefaultConfig().BatchTimeout,
		Enabled:      cfg.Metrics,
	}, log)
	if err != nil {
		return nil, err
	}

	collector, err := telemetry.NewService(telemetry.Config{
		DBPath:  cfg.TelemetryDB,
		Enabled: cfg.Telemetry,
	}, log)
	if err != nil {
		recorder.Close()
		return nil, err
	}

	set := series.NewSet()
	return &app{
		cfg:       cfg,
		log:       log,
		open:      serialport.Open,
		recorder:  recorder,
		collector: collector,
		set:       set,
		assembler: series.NewAssembler(set),
	}, nil
}

// run reads cfg.Port until ctx is done or the session fails.
func (a *app) run(ctx context.Context) error {
	errFactory := errors.New()

	if a.cfg.Port == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "no serial port given, use --port or --list-ports")
	}

	lock, err := pid.Acquire(a.lockDir, a.cfg.Port)
	if err != nil {
		return err
	}
	a.lock = lock

	if a.cfg.Listen != "" {
		srv, err := telemetry.Listen(a.cfg.Listen, a.collector, a.log)
		if err != nil {
			return err
		}
		a.server = srv
		go func() {
			if err := srv.Serve(ctx); err != nil {
				a.log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	if a.cfg.Settings != "" {
		if err := settings.Save(a.cfg.Settings, a.cfg.SessionSettings()); err != nil {
			a.log.Warn().Err(err).Str("path", a.cfg.Settings).Msg("Failed to save settings")
		}
	}

	state, lastErr := a.readSession(ctx)

	if a.cfg.Export != "" && a.set.Len() > 0 {
		a.nameChannels()
		if err := export.WriteFile(a.cfg.Export, a.set); err != nil {
			a.log.Error().Err(err).Str("path", a.cfg.Export).Msg("Failed to export samples")
		} else {
			a.log.Info().Str("path", a.cfg.Export).Int("channels", a.set.Len()).Msg("Samples exported")
		}
	}

	if state == stream.StateFailed {
		return errFactory.Wrap(errors.ErrSessionFailed, lastErr)
	}
	return nil
}

// nameChannels labels channel i with the i-th configured name. Blank entries
// keep the default name.
func (a *app) nameChannels() {
	for i, name := range a.cfg.Names {
		if name = strings.TrimSpace(name); name != "" {
			a.set.Rename(i, name)
		}
	}
}

func (a *app) sessionOptions() stream.Options {
	return stream.Options{
		Device:   a.cfg.Port,
		Serial:   serialport.Options{BaudRate: a.cfg.Baud},
		Interval: a.cfg.IntervalDuration(),
		Mode:     a.cfg.AggregationMode(),
		Warmup:   a.cfg.Warmup,
		Settle:   a.cfg.Settle,
		Open:     a.open,
		Logger:   a.log,
	}
}

// readSession starts a session and drains it once per interval until it
// ends. Cancelling ctx asks the reader to stop after its current poll.
func (a *app) readSession(ctx context.Context) (stream.State, error) {
	opts := a.sessionOptions()
	sess := a.sessions.Start(context.WithoutCancel(ctx), opts)
	defer sess.Close()

	if err := a.collector.Begin(ctx, &telemetry.SessionSummary{
		ID:       sess.ID,
		Device:   opts.Device,
		Baud:     a.cfg.Baud,
		Interval: a.cfg.Interval,
		Mode:     opts.Mode,
	}); err != nil {
		a.log.Warn().Err(err).Msg("Failed to record session start")
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var lastErr error
	for sess.Running() {
		select {
		case <-ticker.C:
		case <-sess.Done():
		case <-ctx.Done():
			a.log.Info().Str("session", sess.ID).Msg("Stopping session")
			sess.Stop()
		}

		if err := a.drain(sess); err != nil {
			lastErr = err
		}
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	state, err := sess.Wait(waitCtx)
	cancel()
	if err != nil {
		a.log.Warn().Str("session", sess.ID).Msg("Reader did not stop in time")
		state = stream.StateFailed
	}
	if err := a.drain(sess); err != nil {
		lastErr = err
	}

	endCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if _, err := a.collector.End(endCtx, sess.ID, state); err != nil {
		a.log.Warn().Err(err).Msg("Failed to record session end")
	}

	return state, lastErr
}

// drain moves everything queued by the reader into the series set, the
// sample recorder and telemetry. It returns the fatal diagnostic, if any.
func (a *app) drain(sess *stream.Session) error {
	b := sess.Drain()
	if b.Empty() {
		return nil
	}

	a.collector.Observe(sess.ID, b)

	var fatal error
	for _, d := range b.Diagnostics {
		if d.IsWarning() {
			a.log.Debug().Str("session", sess.ID).Msg(d.Message)
			continue
		}
		a.log.Error().Str("session", sess.ID).Str("code", string(d.Code())).Msg(d.Message)
		fatal = d
	}

	if len(b.Samples) > 0 {
		added := a.assembler.Add(b.Samples...)
		if a.cfg.Verbose {
			a.log.Info().
				Str("session", sess.ID).
				Int("passes", b.Passes).
				Int("samples", len(b.Samples)).
				Int("points", added).
				Int("channels", a.set.Len()).
				Msg("")
		}

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := a.recorder.Record(ctx, sess.ID, b.Samples); err != nil {
			a.log.Error().Err(err).Msg("Failed to record samples")
		}
		cancel()
	}

	return fatal
}

func (a *app) close() error {
	var errs []error

	if err := a.recorder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.collector.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.New().Wrap(errors.ErrShutdownFailed, errors.Join(errs...))
	}
	return nil
}

func listPorts(w io.Writer) error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tUSB\tVID:PID\tSERIAL\tPRODUCT")
	for _, p := range ports {
		usb, ids := "no", ""
		if p.IsUSB {
			usb, ids = "yes", p.VID+":"+p.PID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, usb, ids, p.SerialNumber, p.Product)
	}
	return tw.Flush()
}
