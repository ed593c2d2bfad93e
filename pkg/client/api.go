package client

import (
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client/pool"
	"github.com/tidb-incubator/ferry/pkg/config"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

// HttpApiServer exposes metrics, pprof and the pool occupancy of one proxy
// over HTTP when the admin_server block is configured.
type HttpApiServer struct {
	cfg      config.AdminServer
	poolMgr  *pool.Manager
	listener net.Listener
	closeCh  chan struct{}

	engine *gin.Engine
}

type CommonJsonResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func CreateHttpApiServer(cfg config.AdminServer, poolMgr *pool.Manager) (*HttpApiServer, error) {
	apiServer := &HttpApiServer{
		cfg:     cfg,
		poolMgr: poolMgr,
		closeCh: make(chan struct{}),
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	apiServer.listener = listener

	engine := gin.New()
	engine.Use(gin.Recovery())

	adminRouteGroup := engine.Group("/admin")
	apiServer.wrapBasicAuthGinMiddleware(adminRouteGroup)
	adminRouteGroup.GET("/pools", apiServer.HandlePoolStats)

	metricsRouteGroup := engine.Group("/metrics")
	metricsRouteGroup.GET("/", gin.WrapF(promhttp.Handler().ServeHTTP))

	pprofRouteGroup := engine.Group("/debug/pprof")
	pprofRouteGroup.Any("/", gin.WrapF(pprof.Index))
	pprofRouteGroup.Any("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofRouteGroup.Any("/profile", gin.WrapF(pprof.Profile))
	pprofRouteGroup.Any("/symbol", gin.WrapF(pprof.Symbol))
	pprofRouteGroup.Any("/trace", gin.WrapF(pprof.Trace))
	pprofRouteGroup.Any("/goroutine", gin.WrapF(pprof.Handler("goroutine").ServeHTTP))
	pprofRouteGroup.Any("/heap", gin.WrapF(pprof.Handler("heap").ServeHTTP))
	pprofRouteGroup.Any("/mutex", gin.WrapF(pprof.Handler("mutex").ServeHTTP))
	pprofRouteGroup.Any("/block", gin.WrapF(pprof.Handler("block").ServeHTTP))
	pprofRouteGroup.Any("/allocs", gin.WrapF(pprof.Handler("allocs").ServeHTTP))

	apiServer.engine = engine
	return apiServer, nil
}

func (h *HttpApiServer) wrapBasicAuthGinMiddleware(group *gin.RouterGroup) {
	if h.cfg.EnableBasicAuth && h.cfg.User != "" && h.cfg.Password != "" {
		group.Use(gin.BasicAuth(gin.Accounts{h.cfg.User: h.cfg.Password}))
	}
}

func (h *HttpApiServer) HandlePoolStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.poolMgr.Stats())
}

func (h *HttpApiServer) Addr() string {
	return h.listener.Addr().String()
}

func (h *HttpApiServer) Run() {
	defer func() {
		if err := h.listener.Close(); err != nil {
			logutil.BgLogger().Warn("close http api server listener error", zap.Error(err))
		}
	}()

	errCh := make(chan error)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/", h.engine)
		errCh <- http.Serve(h.listener, mux)
	}()

	select {
	case <-h.closeCh:
		logutil.BgLogger().Info("closing http api server")
	case err := <-errCh:
		logutil.BgLogger().Error("http api server exit on error", zap.Error(err))
	}
}

func (h *HttpApiServer) Close() {
	close(h.closeCh)
}
