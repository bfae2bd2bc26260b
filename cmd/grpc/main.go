package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"ix-decoder-sol/internal/config"
	"ix-decoder-sol/internal/logic/grpc"
	"ix-decoder-sol/internal/pkg/logger"
	"ix-decoder-sol/internal/svc"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/grpc.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.GrpcConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logx.Errorf("logger 初始化失败: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewGrpcServiceContext(c)
	if err != nil {
		logx.Errorf("服务上下文初始化失败: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()

	blockChan := make(chan *pb.SubscribeUpdateBlock, c.BlockBuffer)

	slotChecker := grpc.NewSlotChecker(c.RpcConf.Endpoint, time.Duration(c.Grpc.GapCheckDelaySec)*time.Second)
	sg.Add(slotChecker)
	sg.Add(grpc.NewBlockProcessor(serviceContext, blockChan, slotChecker))

	grpcService, err := grpc.NewGrpcStreamManager(serviceContext, blockChan)
	if err != nil {
		logx.Errorf("gRPC 连接失败: %v", err)
		os.Exit(1)
	}
	sg.Add(grpcService)

	if c.MetricsAddr != "" {
		go serveMetrics(c.MetricsAddr)
	}

	logx.Infof("Starting grpc stream decoder")
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logx.Infof("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Errorf("metrics server stopped: %v", err)
	}
}
