// Command horcrux runs the cache server: it parses flags, bootstraps
// the snapshot directory, wires one worker per shard, restores
// whatever snapshots already exist there, and serves the memcached
// text-protocol subset until SIGTERM or SIGINT.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"horcrux/metrics"
	"horcrux/router"
	"horcrux/server"
	"horcrux/snapshot"
	"horcrux/store"
	"horcrux/worker"
)

/*
Flag parsing, directory bootstrapping, and logger construction are thin
wrappers around the core engine. The stdlib flag package is used rather
than an ecosystem CLI library (see DESIGN.md).
*/
func main() {
	os.Exit(run())
}

func run() int {
	snapshotDir := flag.String("snapshot-dir", "", "directory holding canonical snapshot files (required)")
	shards := flag.Int("shards", 1, "number of shards")
	intervalSecs := flag.Int("snapshot-interval-secs", 180, "seconds between scheduled snapshot broadcasts")
	port := flag.Int("port", 11211, "TCP port to listen on")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	if *snapshotDir == "" {
		fmt.Fprintln(os.Stderr, "horcrux: --snapshot-dir is required")
		return 1
	}
	if *shards <= 0 {
		fmt.Fprintln(os.Stderr, "horcrux: --shards must be positive")
		return 1
	}
	if *intervalSecs <= 0 {
		fmt.Fprintln(os.Stderr, "horcrux: --snapshot-interval-secs must be positive")
		return 1
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "horcrux: building logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if err := os.MkdirAll(*snapshotDir, 0o755); err != nil {
		logger.Error("could not create snapshot directory", zap.String("dir", *snapshotDir), zap.Error(err))
		return 1
	}

	var m *metrics.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	} else {
		m = metrics.NewNop()
	}

	queues := make([]*worker.JobQueue, *shards)
	for i := 0; i < *shards; i++ {
		sh := store.New(i)
		if err := snapshot.Restore(*snapshotDir, sh); err != nil {
			logger.Warn("snapshot restore reported an error; continuing with best-effort state",
				zap.Int("shard", i), zap.Error(err))
		}

		q := worker.NewJobQueue()
		queues[i] = q

		snapper := snapshot.New(*snapshotDir, logger.Named(fmt.Sprintf("snapshot.%d", i)))
		w := worker.New(sh, q, snapper, logger.Named(fmt.Sprintf("worker.%d", i)))
		go w.Run()
	}

	r := router.New(queues)
	addr := fmt.Sprintf(":%d", *port)
	srv := server.New(addr, r, logger.Named("server"), m)

	go srv.HandleSignals()
	srv.StartSnapshotTicker(time.Duration(*intervalSecs) * time.Second)

	if err := srv.Start(); err != nil {
		logger.Error("listen failed", zap.String("addr", addr), zap.Error(err))
		return 1
	}

	logger.Info("shutdown complete")
	return 0
}
