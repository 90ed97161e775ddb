// Command quoteclient subscribes to a set of tickers with a quoteserver,
// sends it keepalive PINGs, and logs the quotes it receives.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mstreamio/quotestream/internal/client"
	"github.com/mstreamio/quotestream/internal/config"
	"github.com/mstreamio/quotestream/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(*configFlag))
	if err != nil {
		fmt.Fprintln(os.Stderr, "quoteclient: loading configuration:", err)
		return 1
	}

	logger := logging.Configure(logging.Config{
		Level:      cfg.Logging.Level,
		Structured: cfg.Logging.Structured,
	})

	if err := client.NewSupervisor(logger).Run(cfg); err != nil {
		logger.Error("quoteclient exited with error", "error", err)
		return 1
	}
	return 0
}
