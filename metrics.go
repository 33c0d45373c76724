package markup

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "trustedmarkup"

// metrics counts renders and portal lifecycle events.
type metrics struct {
	renders       *prometheus.CounterVec
	mounts        *prometheus.CounterVec
	releases      *prometheus.CounterVec
	mountFailures *prometheus.CounterVec
	activePortals prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "renders_total",
			Help:      "Rendered units by encoding.",
		}, []string{"encoding"}),
		mounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "portal_mounts_total",
			Help:      "Portals created for newly seen placeholders.",
		}, []string{"type"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "portal_releases_total",
			Help:      "Portals released after their placeholder vanished or the host closed.",
		}, []string{"type"}),
		mountFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "portal_mount_failures_total",
			Help:      "Placeholders left unmounted because their portal failed.",
		}, []string{"type"}),
		activePortals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_portals",
			Help:      "Portals currently mounted across all hosts.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	collectors := []prometheus.Collector{m.renders, m.mounts, m.releases, m.mountFailures, m.activePortals}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			// Share the existing collector when several renderers use one registry.
			collectors[i] = already.ExistingCollector
		}
	}
	m.renders = collectors[0].(*prometheus.CounterVec)
	m.mounts = collectors[1].(*prometheus.CounterVec)
	m.releases = collectors[2].(*prometheus.CounterVec)
	m.mountFailures = collectors[3].(*prometheus.CounterVec)
	m.activePortals = collectors[4].(prometheus.Gauge)
	return m, nil
}

// encodingLabel bounds label cardinality: unrecognized names collapse to unknown.
func encodingLabel(e Encoding) string {
	if e.Known() {
		return string(e)
	}
	return string(EncodingUnknown)
}
