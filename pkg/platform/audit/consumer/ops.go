package consumer

import (
	"context"
	"math/rand"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "stagegate/pkg/platform/audit"
)

// OpsMetrics tracks the operational view of the ledger stream.
type OpsMetrics struct {
	Processed  *prometheus.CounterVec
	SampledOut prometheus.Counter
}

func NewOpsMetrics() *OpsMetrics {
	return &OpsMetrics{
		Processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_audit_ops_processed_total",
			Help: "Relayed ledger entries counted by action type.",
		}, []string{"action"}),
		SampledOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stagegate_audit_ops_sampled_out_total",
			Help: "Ledger entries dropped from the ops view by sampling.",
		}),
	}
}

// Sampler downsamples high-volume actions in the ops view. The ledger itself
// is never sampled; only this derived counter stream is.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[audit.Action]float64
}

func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[audit.Action]float64),
	}
}

// SetRate overrides the keep rate for one action.
func (s *Sampler) SetRate(action audit.Action, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

// Keep reports whether an entry for action stays in the ops view.
func (s *Sampler) Keep(action audit.Action) bool {
	s.mu.RLock()
	rate, ok := s.rateByAction[action]
	if !ok {
		rate = s.defaultRate
	}
	s.mu.RUnlock()
	return rand.Float64() < rate //nolint:gosec // sampling needs no crypto rand
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// OpsHandler keeps per-action counters for dashboards. Always best-effort;
// it never fails the batch.
type OpsHandler struct {
	metrics *OpsMetrics
	sampler *Sampler
}

func NewOpsHandler(metrics *OpsMetrics, sampler *Sampler) *OpsHandler {
	return &OpsHandler{metrics: metrics, sampler: sampler}
}

func (h *OpsHandler) Handle(_ context.Context, entry audit.Entry) error {
	if h.sampler != nil && !h.sampler.Keep(entry.Action) {
		h.metrics.SampledOut.Inc()
		return nil
	}
	h.metrics.Processed.WithLabelValues(string(entry.Action)).Inc()
	return nil
}
