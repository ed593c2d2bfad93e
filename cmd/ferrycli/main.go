package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client"
	"github.com/tidb-incubator/ferry/pkg/client/executor"
	"github.com/tidb-incubator/ferry/pkg/client/pool"
	"github.com/tidb-incubator/ferry/pkg/config"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

var (
	configFilePath = flag.String("config", "conf/ferry.yaml", "ferry client config file path")
)

func main() {
	flag.Parse()
	serviceConfigData, err := ioutil.ReadFile(*configFilePath)
	if err != nil {
		fmt.Printf("read config file error: %v\n", err)
		os.Exit(1)
	}

	svcCfg, err := config.UnmarshalServiceConfig(serviceConfigData)
	if err != nil {
		fmt.Printf("parse config file error: %v\n", err)
		os.Exit(1)
	}

	if err := client.InitPlugin(&svcCfg.Mysql.Log); err != nil {
		fmt.Printf("init plugin error: %v\n", err)
		os.Exit(1)
	}

	target, err := parseTarget(svcCfg.Target)
	if err != nil {
		fmt.Printf("parse target error: %v\n", err)
		os.Exit(1)
	}

	proxy, err := client.NewServiceProxy(svcCfg.Mysql, client.Options{
		ServiceName: svcCfg.Name,
		Target:      target,
		MaxConnNum:  svcCfg.MaxConnNum,
		IdleTime:    time.Duration(svcCfg.IdleTimeMs) * time.Millisecond,
		Timeout:     time.Duration(svcCfg.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		fmt.Printf("create service proxy error: %v\n", err)
		os.Exit(1)
	}

	var apiServer *client.HttpApiServer
	if svcCfg.Mysql.AdminServer.Addr != "" {
		apiServer, err = client.CreateHttpApiServer(svcCfg.Mysql.AdminServer, proxy.PoolManager())
		if err != nil {
			fmt.Printf("create http api server error: %v\n", err)
			os.Exit(1)
		}
		go apiServer.Run()
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	go func() {
		sig := <-sc
		logutil.BgLogger().Warn("get os signal, shutting down", zap.String("signal", sig.String()))
		if apiServer != nil {
			apiServer.Close()
		}
		proxy.Stop()
		proxy.Destroy()
		os.Exit(0)
	}()

	runDemo(proxy)

	if apiServer != nil {
		apiServer.Close()
	}
	proxy.Stop()
	proxy.Destroy()
}

func parseTarget(target string) (pool.NodeAddr, error) {
	if target == "" {
		return pool.NodeAddr{}, nil
	}
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return pool.NodeAddr{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return pool.NodeAddr{}, err
	}
	return pool.NodeAddr{IP: host, Port: uint16(port)}, nil
}

func runDemo(proxy *client.ServiceProxy) {
	log := logutil.BgLogger()

	// Plain query with raw rows.
	ctx := client.NewClientContext()
	rows := executor.NewRawResults()
	if status := proxy.Query(ctx, rows, "select id, username from users"); !status.OK() {
		log.Error("query users failed", zap.String("status", status.String()))
		return
	}
	for i, row := range rows.RawRows() {
		log.Info("user row", zap.Int("row", i),
			zap.ByteString("id", row[0]), zap.ByteString("username", row[1]))
	}

	// Typed query.
	typed := executor.NewTypedResults(executor.Schema{executor.KindInt32, executor.KindString})
	if status := proxy.Query(client.NewClientContext(), typed,
		"select id, username from users where id = ? and username = ?", 3, "carol"); !status.OK() {
		log.Error("typed query failed", zap.String("status", status.String()))
		return
	}
	if len(typed.Rows()) > 0 {
		log.Info("typed row",
			zap.Int32("id", typed.Rows()[0][0].(int32)),
			zap.String("username", typed.Rows()[0][1].(string)))
	}

	// Transaction: insert then roll back.
	txCtx := client.NewClientContext()
	handle, status := proxy.Begin(txCtx)
	if !status.OK() {
		log.Error("begin failed", zap.String("status", status.String()))
		return
	}
	rs := executor.NewExecResults()
	created := executor.NewTimeValue()
	created.SetYear(2024).SetMonth(9).SetDay(10)
	if status := proxy.TxExecute(txCtx, handle, rs,
		"insert into users (username, created_at) values (?, ?)", "jack", created); !status.OK() {
		log.Error("tx insert failed", zap.String("status", status.String()))
		_ = proxy.Rollback(txCtx, handle)
		return
	}
	if status := proxy.Rollback(txCtx, handle); !status.OK() {
		log.Error("rollback failed", zap.String("status", status.String()))
		return
	}
	log.Info("transaction rolled back", zap.Uint64("affected", rs.AffectedRows()))

	// Async chain.
	doneCh := make(chan struct{})
	proxy.AsyncQuery(client.NewClientContext(), executor.NewRawResults(), "select count(*) from users").
		Then(func(res *executor.Results, err error) {
			defer close(doneCh)
			if err != nil {
				log.Error("async count failed", zap.Error(err))
				return
			}
			if len(res.RawRows()) > 0 {
				log.Info("async count", zap.ByteString("count", res.RawRows()[0][0]))
			}
		})
	<-doneCh
}
