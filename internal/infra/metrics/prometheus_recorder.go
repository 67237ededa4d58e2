package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentstate"

// PrometheusRecorder implements Recorder using Prometheus metrics
type PrometheusRecorder struct {
	persists          *prom.CounterVec
	phaseTransitions  *prom.CounterVec
	compactions       prom.Counter
	decisionsDropped  prom.Counter
	checkpoints       prom.Counter
	checkpointsPruned prom.Counter
	restores          *prom.CounterVec
	blockers          *prom.CounterVec
	tokenUsage        prom.Gauge
	tokenBudget       prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		persists: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "context_persist_total",
			Help:      "Context document writes by result",
		}, []string{"result"}),
		phaseTransitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase transitions by source and target phase",
		}, []string{"from", "to"}),
		compactions: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Context compactions performed",
		}),
		decisionsDropped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_dropped_decisions_total",
			Help:      "Decisions dropped by compaction",
		}),
		checkpoints: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_created_total",
			Help:      "Checkpoints created",
		}),
		checkpointsPruned: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_pruned_total",
			Help:      "Checkpoints deleted by retention",
		}),
		restores: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_restores_total",
			Help:      "Checkpoint restores by result",
		}, []string{"result"}),
		blockers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "blockers_detected_total",
			Help:      "Detected blockers by type and severity",
		}, []string{"type", "severity"}),
		tokenUsage: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "token_usage",
			Help:      "Last reported token usage",
		}),
		tokenBudget: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "token_budget",
			Help:      "Token budget of the current context",
		}),
	}
	reg.MustRegister(pr.persists, pr.phaseTransitions, pr.compactions, pr.decisionsDropped,
		pr.checkpoints, pr.checkpointsPruned, pr.restores, pr.blockers, pr.tokenUsage, pr.tokenBudget)
	return pr
}

func (p *PrometheusRecorder) IncPersist(success bool) {
	if p == nil {
		return
	}
	p.persists.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncPhaseTransition(from, to string) {
	if p == nil {
		return
	}
	p.phaseTransitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) IncCompaction(dropped int) {
	if p == nil {
		return
	}
	p.compactions.Inc()
	if dropped > 0 {
		p.decisionsDropped.Add(float64(dropped))
	}
}

func (p *PrometheusRecorder) IncCheckpointCreated() {
	if p == nil {
		return
	}
	p.checkpoints.Inc()
}

func (p *PrometheusRecorder) IncCheckpointsPruned(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.checkpointsPruned.Add(float64(n))
}

func (p *PrometheusRecorder) IncCheckpointRestore(success bool) {
	if p == nil {
		return
	}
	p.restores.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncBlockerDetected(blockerType, severity string) {
	if p == nil {
		return
	}
	p.blockers.WithLabelValues(blockerType, severity).Inc()
}

func (p *PrometheusRecorder) SetTokenUsage(tokens, maxTokens int) {
	if p == nil {
		return
	}
	p.tokenUsage.Set(float64(tokens))
	p.tokenBudget.Set(float64(maxTokens))
}
