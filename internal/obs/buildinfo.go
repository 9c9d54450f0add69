package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Posturewatch API build information.",
		},
		[]string{"version", "commit"},
	)
)

// InitBuildInfo registers the build_info metric (once) and sets its labels.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}
