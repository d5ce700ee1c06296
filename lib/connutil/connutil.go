// Package connutil wires flags and configuration into an open afg.Session
// for command line tools.
package connutil

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gotmc/afg"
	"github.com/gotmc/afg/lib/cmdlog"
	"github.com/gotmc/afg/lib/config"
	"github.com/gotmc/afg/lib/metrics"
	"github.com/gotmc/afg/lib/prologix"
	"github.com/gotmc/afg/lib/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type Conn struct {
	ConfigPath  string
	Resource    string
	Port        string // Prologix serial port for GPIB resources
	Driver      string
	Baud        int
	Delay       time.Duration
	ReadTimeout time.Duration
	Verbose     bool
	Trace       bool
	MetricsAddr string

	Log *logrus.Logger
}

// AddFlags is to be called before [flag.Parse].
func (c *Conn) AddFlags(fs *flag.FlagSet) {
	if fs == nil {
		fs = flag.CommandLine
	}
	fs.StringVar(&c.ConfigPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.Resource, "resource", "", "instrument resource, e.g. ASRL/dev/ttyACM0::INSTR")
	fs.StringVar(&c.Port, "port", "", "serial port of the Prologix controller for GPIB resources")
	fs.StringVar(&c.Driver, "driver", "", "serial driver: bugst or tarm")
	fs.IntVar(&c.Baud, "baud", 0, "serial baud rate")
	fs.DurationVar(&c.Delay, "delay", 0, "delay between Prologix writes")
	fs.DurationVar(&c.ReadTimeout, "timeout", 0, "response timeout")
	fs.BoolVar(&c.Verbose, "v", false, "debug logging")
	fs.BoolVar(&c.Trace, "trace", false, "log every command and response")
	fs.StringVar(&c.MetricsAddr, "metrics", "", "serve prometheus metrics on this address")
}

// Config merges the configuration file, if any, with the flags that were
// set.
func (c *Conn) Config() (*config.Config, error) {
	cfg := config.Default()
	if c.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(c.ConfigPath); err != nil {
			return nil, err
		}
	}
	if c.Resource != "" {
		cfg.Resource = c.Resource
	}
	if c.Port != "" {
		cfg.Prologix.Port = c.Port
	}
	if c.Driver != "" {
		cfg.Serial.Driver = c.Driver
	}
	if c.Baud != 0 {
		cfg.Serial.Baud = c.Baud
	}
	if c.Delay != 0 {
		cfg.Prologix.WriteDelay = c.Delay
	}
	if c.ReadTimeout != 0 {
		cfg.Serial.ReadTimeout = c.ReadTimeout
	}
	if c.Verbose {
		cfg.Log.Level = "debug"
	}
	if c.Trace {
		cfg.Log.Commands = true
	}
	if c.MetricsAddr != "" {
		cfg.Metrics.Addr = c.MetricsAddr
	}
	return cfg, config.Validate(cfg)
}

// Setup is to be called after [flag.Parse]. The returned cleanup closes the
// session and stops the metrics endpoint; it must be called on every exit
// path.
func (c *Conn) Setup() (s *afg.Session, cleanup func() error, err error) {
	nocleanup := func() error { return nil }

	cfg, err := c.Config()
	if err != nil {
		return nil, nocleanup, err
	}
	if c.Log == nil {
		c.Log = logrus.New()
		c.Log.SetOutput(os.Stderr)
	}
	lvl, _ := logrus.ParseLevel(cfg.Log.Level)
	c.Log.SetLevel(lvl)

	t, err := Open(cfg, c.Log)
	if err != nil {
		return nil, nocleanup, err
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		col, err := metrics.NewCollectors(reg)
		if err != nil {
			t.Close()
			return nil, nocleanup, err
		}
		t = metrics.Wrap(t, col)
		srv = &http.Server{
			Addr:    cfg.Metrics.Addr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.Log.WithError(err).Error("metrics endpoint failed")
			}
		}()
		c.Log.WithField("addr", cfg.Metrics.Addr).Info("serving metrics")
	}

	s = afg.NewSession(t, afg.WithLogger(c.Log))
	cleanup = func() error {
		err := s.Close()
		if srv != nil {
			err = multierr.Append(err, srv.Close())
		}
		return err
	}
	return s, cleanup, nil
}

// Open opens the transport described by cfg, with command tracing if
// enabled.
func Open(cfg *config.Config, log *logrus.Logger) (afg.Transport, error) {
	opts := []transport.Option{
		transport.WithBaudRate(cfg.Serial.Baud),
		transport.WithSerialDriver(cfg.Serial.Driver),
		transport.WithReadTimeout(cfg.Serial.ReadTimeout),
		transport.WithTerminator(cfg.Terminator[0]),
		transport.WithLogger(log),
	}
	if cfg.Prologix.Port != "" {
		var popts []prologix.ControllerOption
		if cfg.Prologix.AR488 {
			popts = append(popts, prologix.WithAR488())
		}
		if cfg.Prologix.WriteDelay > 0 {
			popts = append(popts, prologix.WithWriteDelay(cfg.Prologix.WriteDelay))
		}
		opts = append(opts, transport.WithPrologix(cfg.Prologix.Port, popts...))
	}
	if cfg.Prologix.Clear {
		opts = append(opts, transport.WithDeviceClear())
	}
	t, err := transport.Open(cfg.Resource, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Commands {
		t = cmdlog.Wrap(t, log)
	}
	return t, nil
}
