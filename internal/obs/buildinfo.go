package obs

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jamaat_build_info",
			Help: "Jamaat API build information.",
		},
		[]string{"version", "revision", "goversion"},
	)
)

// InitBuildInfo publishes jamaat_build_info. An empty revision falls back to the
// vcs.revision stamped by the Go toolchain.
func InitBuildInfo(version, revision string) {
	if revision == "" || revision == "dev" {
		revision = vcsRevision()
	}
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, revision, runtime.Version()).Set(1)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}
