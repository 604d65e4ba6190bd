// Package metrics records distribution run metrics and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/shopspring/decimal"

	"github.com/screwyprof/distributor/pkg/units"
)

// Batch results
const (
	ResultConfirmed = "confirmed"
	ResultSimulated = "simulated"
	ResultPlanned   = "planned"
	ResultFailed    = "failed"
)

// Metrics holds the collectors of a single run on its own registry
type Metrics struct {
	registry *prometheus.Registry

	BatchesTotal    *prometheus.CounterVec
	RecipientsTotal prometheus.Counter
	AmountSent      prometheus.Counter
	RewardsExcluded prometheus.Counter
	LastSuccess     prometheus.Gauge
}

// New registers the distributor collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distributor_batches_total",
				Help: "Total number of batches processed",
			},
			[]string{"result"},
		),
		RecipientsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "distributor_recipients_total",
				Help: "Total number of recipients paid",
			},
		),
		AmountSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "distributor_amount_sent",
				Help: "Total amount sent, in whole tokens",
			},
		),
		RewardsExcluded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "distributor_rewards_excluded",
				Help: "Total amount of rewards below the minimum threshold, in whole tokens",
			},
		),
		LastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "distributor_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp or testutil
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBatch counts one batch with the given result; recipients and amount are only counted when funds moved
func (m *Metrics) ObserveBatch(result string, recipients int, amount *big.Int) {
	m.BatchesTotal.WithLabelValues(result).Inc()
	if result != ResultConfirmed {
		return
	}
	m.RecipientsTotal.Add(float64(recipients))
	m.AmountSent.Add(Tokens(amount))
}

// ObserveExcluded adds rewards dropped by the minimum threshold
func (m *Metrics) ObserveExcluded(amount *big.Int) {
	m.RewardsExcluded.Add(Tokens(amount))
}

// Push sends every collector to the Pushgateway at url under job
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Tokens converts base units to whole tokens for float-valued collectors
func Tokens(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -units.TokenDecimals).InexactFloat64()
}
