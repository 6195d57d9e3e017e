// Command rpcnode is a demo blockchain node exposing the notification
// engine over a WebSocket JSON-RPC endpoint, plus HTTP control
// endpoints for driving slot advancement, confirmation, root-setting,
// reorgs, account writes and votes — grounded on the teacher's
// main.go/control_handler.go split between the public RPC surface and
// an operator-facing control surface.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/metrics"
	"rpcsubscriptions/pubsub"
	"rpcsubscriptions/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := loadNodeConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	engine := metrics.NewEngine(prometheus.DefaultRegisterer, "rpcnode")

	mem := ledger.NewMemoryLedger()
	control := pubsub.New(cfg.pubsubConfig(), mem, mem, mem, engine)
	defer control.Close()

	n := newNode(mem, control)

	mux := http.NewServeMux()
	mux.Handle("/", transport.NewServer(control))
	mux.Handle("/metrics", promhttp.Handler())
	registerControlEndpoints(mux, n)

	slog.Info("rpcnode listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
