// Package metrics exposes chain, pool, fee-estimator, and peer gauges
// through a dedicated prometheus.Registry rather than the global
// default registry.
package metrics

import (
	"strconv"

	"github.com/nervosnetwork/ckb-go/core/feeestimator"
	"github.com/nervosnetwork/ckb-go/core/peer"
	"github.com/nervosnetwork/ckb-go/core/txpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns one Registry and every gauge/counter this node exports.
type Metrics struct {
	Registry *prometheus.Registry

	tipHeight     prometheus.Gauge
	tipDifficulty prometheus.Gauge

	poolSize    prometheus.Gauge
	poolCycles  prometheus.Gauge
	poolRejects prometheus.Counter

	feeBucketCount *prometheus.GaugeVec

	peersInbound  prometheus.Gauge
	peersOutbound prometheus.Gauge
}

// New builds a Metrics instance with every gauge registered against a
// fresh, private registry (never the global default, so multiple nodes
// in one process don't collide).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		tipHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_chain_tip_height",
			Help: "Current canonical chain tip block number",
		}),
		tipDifficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_chain_tip_total_difficulty",
			Help: "Cumulative difficulty of the canonical chain tip",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_tx_pool_size_bytes",
			Help: "Total transaction size across all tx-pool sub-pools",
		}),
		poolCycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_tx_pool_cycles",
			Help: "Total verification cycles across all tx-pool sub-pools",
		}),
		poolRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ckb_tx_pool_rejects_total",
			Help: "Total number of transactions rejected by the tx pool",
		}),
		feeBucketCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ckb_fee_estimator_bucket_count",
			Help: "Decayed transaction count observed in a fee-rate bucket",
		}, []string{"bucket"}),
		peersInbound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_peers_inbound",
			Help: "Number of connected inbound peers",
		}),
		peersOutbound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ckb_peers_outbound",
			Help: "Number of connected outbound peers",
		}),
	}
	reg.MustRegister(
		m.tipHeight, m.tipDifficulty,
		m.poolSize, m.poolCycles, m.poolRejects,
		m.feeBucketCount,
		m.peersInbound, m.peersOutbound,
	)
	return m
}

// ObserveTip records a new canonical chain tip.
func (m *Metrics) ObserveTip(height uint64, totalDifficulty float64) {
	m.tipHeight.Set(float64(height))
	m.tipDifficulty.Set(totalDifficulty)
}

// ObservePool samples the tx pool's aggregate counters.
func (m *Metrics) ObservePool(pool *txpool.TxPool) {
	m.poolSize.Set(float64(pool.TotalSize()))
	m.poolCycles.Set(float64(pool.TotalCycles()))
}

// IncRejects counts one tx-pool rejection.
func (m *Metrics) IncRejects() {
	m.poolRejects.Inc()
}

// ObserveFeeEstimator exports every bucket's decayed sample count.
func (m *Metrics) ObserveFeeEstimator(est *feeestimator.Estimator) {
	for i := 0; i < feeestimator.NumBuckets; i++ {
		m.feeBucketCount.WithLabelValues(strconv.Itoa(i)).Set(est.BucketCount(i))
	}
}

// ObservePeers samples the peer registry's slot occupancy.
func (m *Metrics) ObservePeers(reg *peer.Registry) {
	m.peersInbound.Set(float64(reg.InboundCount()))
	m.peersOutbound.Set(float64(reg.OutboundCount()))
}
