// Package metrics instruments an afg.Transport with prometheus collectors.
package metrics

import (
	"time"

	"github.com/gotmc/afg"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors counts and times instrument traffic, labelled by operation
// ("write" or "query").
type Collectors struct {
	Commands *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them on reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "afg_commands_total",
			Help: "Commands sent to the function generator.",
		}, []string{"op"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "afg_transport_errors_total",
			Help: "Commands the transport failed to complete.",
		}, []string{"op"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "afg_command_duration_seconds",
			Help:    "Time to complete a write or query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	for _, col := range []prometheus.Collector{c.Commands, c.Errors, c.Duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Transport records metrics for every call on the wrapped transport.
type Transport struct {
	next afg.Transport
	c    *Collectors
}

// Wrap returns t instrumented with c.
func Wrap(t afg.Transport, c *Collectors) *Transport {
	return &Transport{next: t, c: c}
}

func (t *Transport) observe(op string, start time.Time, err error) {
	t.c.Commands.WithLabelValues(op).Inc()
	t.c.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		t.c.Errors.WithLabelValues(op).Inc()
	}
}

func (t *Transport) Write(cmd string) error {
	start := time.Now()
	err := t.next.Write(cmd)
	t.observe("write", start, err)
	return err
}

func (t *Transport) Query(cmd string) (string, error) {
	start := time.Now()
	resp, err := t.next.Query(cmd)
	t.observe("query", start, err)
	return resp, err
}

func (t *Transport) Close() error {
	return t.next.Close()
}
