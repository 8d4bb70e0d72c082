package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bitbucket.org/Davydov/chaindiag/analysis"
)

// metrics are the gauges of one run, written as a node exporter
// textfile.
type metrics struct {
	registry   *prometheus.Registry
	rhat       *prometheus.GaugeVec
	within     *prometheus.GaugeVec
	acceptance *prometheus.GaugeVec
	failed     *prometheus.GaugeVec
	keyFailed  *prometheus.GaugeVec
	chains     prometheus.Gauge
	duration   prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		rhat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "rhat",
			Help:      "Between-chain Gelman-Rubin statistic.",
		}, []string{"sampler", "key"}),
		within: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "within_chain_rhat_max",
			Help:      "Largest split-half statistic over chains.",
		}, []string{"sampler", "key"}),
		acceptance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "step_acceptance_percent",
			Help:      "Total step acceptance and its target.",
		}, []string{"sampler", "kind"}),
		failed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "diagnostic_failed",
			Help:      "1 if the diagnostic failed.",
		}, []string{"diagnostic"}),
		keyFailed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "key_failed",
			Help:      "1 if the key is left out of the diagnostic.",
		}, []string{"diagnostic", "key"}),
		chains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "chains",
			Help:      "Number of analysed chain files.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaindiag",
			Name:      "run_duration_seconds",
			Help:      "Duration of the analysis.",
		}),
	}
	m.registry.MustRegister(m.rhat, m.within, m.acceptance, m.failed, m.keyFailed, m.chains, m.duration)
	return m
}

// observe sets the gauges from a report.
func (m *metrics) observe(rep *analysis.Report, d time.Duration) {
	name := rep.Sampler.Name
	m.chains.Set(float64(len(rep.Files)))
	m.duration.Set(d.Seconds())
	for key, r := range rep.RHat {
		m.rhat.WithLabelValues(name, key).Set(r.RHat)
		worst := 0.0
		for _, w := range r.Within {
			if w > worst {
				worst = w
			}
		}
		m.within.WithLabelValues(name, key).Set(worst)
	}
	if rep.Acceptance != nil {
		m.acceptance.WithLabelValues(name, "total").Set(rep.Acceptance.Total)
		m.acceptance.WithLabelValues(name, "target").Set(rep.Sampler.PerfectAcceptance)
	}
	for _, diagnostic := range analysis.AllDiagnostics {
		v := 0.0
		if rep.Failed(diagnostic) {
			v = 1
		}
		m.failed.WithLabelValues(string(diagnostic)).Set(v)
		for key := range rep.KeyFailures[diagnostic] {
			m.keyFailed.WithLabelValues(string(diagnostic), key).Set(1)
		}
	}
}

// writeMetrics writes the metrics of a report to path.
func writeMetrics(path string, rep *analysis.Report, d time.Duration) error {
	m := newMetrics()
	m.observe(rep, d)
	return prometheus.WriteToTextfile(path, m.registry)
}
