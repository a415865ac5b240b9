package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"

	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/service"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 8080, "API port to bind")
	dataDir := flag.String("datadir", "./cipherpool-data", "data directory for the pool database")
	owner := flag.String("owner", "", "pool owner address (required)")
	oracleKey := flag.String("oraclekey", "", "hex private key for the decryption oracle, generated if empty")
	requestTimeout := flag.Duration("request-timeout", 10*time.Minute, "age after which a pending decryption request can be reopened")
	monitorInterval := flag.Duration("monitor-interval", time.Minute, "interval between expired-request scans")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")

	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	if !common.IsHexAddress(*owner) {
		log.Fatalf("a valid --owner address is required, got %q", *owner)
	}

	pool, err := service.NewPool(service.PoolConfig{
		DataDir:        *dataDir,
		Owner:          common.HexToAddress(*owner),
		OracleKeyHex:   *oracleKey,
		RequestTimeout: *requestTimeout,
	})
	if err != nil {
		log.Fatalf("failed to create pool service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		log.Fatalf("failed to start pool service: %v", err)
	}

	apiSrv := service.NewAPI(pool.Protocol, pool.Engine, *host, *port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}

	monitor := service.NewRequestMonitor(pool.Protocol, *monitorInterval)
	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("failed to start request monitor: %v", err)
	}

	log.Infow("cipherpool running", "host", *host, "port", *port,
		"owner", *owner, "oracle", pool.Engine.OracleAddress())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	monitor.Stop()
	apiSrv.Stop()
	pool.Stop()
}
