package client

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidb-incubator/ferry/pkg/client/pool"
	"github.com/tidb-incubator/ferry/pkg/config"
)

func TestHttpApiServerPoolStats(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dialer := &stubDialer{}
	mgr := pool.NewManager(pool.Option{
		MaxSize:       4,
		NumShardGroup: 2,
		UserName:      "root",
		Dial:          dialer.dial,
	})
	p := mgr.Get(pool.NodeAddr{IP: "127.0.0.1", Port: 3306})
	p.Reclaim(0, p.GetExecutor())

	apiServer, err := CreateHttpApiServer(config.AdminServer{Addr: "127.0.0.1:0"}, mgr)
	require.NoError(t, err)
	go apiServer.Run()
	defer apiServer.Close()
	time.Sleep(10 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/admin/pools", apiServer.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)

	var stats []pool.PoolStat
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "127.0.0.1:3306", stats[0].Endpoint)
	assert.Equal(t, int64(1), stats[0].Live)
	assert.Equal(t, 1, stats[0].Idle)

	metricsResp, err := http.Get(fmt.Sprintf("http://%s/metrics/", apiServer.Addr()))
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
