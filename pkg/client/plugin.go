package client

import (
	"sync"

	"github.com/tidb-incubator/ferry/pkg/metrics"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

var initPluginOnce sync.Once

// InitPlugin performs the process-wide setup and must run once before the
// first ServiceProxy is built. Teardown runs in LIFO order: Stop then
// Destroy on each proxy, then on whatever the host framework owns.
func InitPlugin(logConf *logutil.Config) error {
	var err error
	initPluginOnce.Do(func() {
		if logConf != nil {
			err = logutil.InitLogger(logConf)
			if err != nil {
				return
			}
		}
		metrics.RegisterClientMetrics()
	})
	return err
}
