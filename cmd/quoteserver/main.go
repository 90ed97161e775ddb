// Command quoteserver runs the synthetic quote generator, UDP dispatcher,
// and TCP subscription front-end as one process.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mstreamio/quotestream/internal/config"
	"github.com/mstreamio/quotestream/internal/logging"
	"github.com/mstreamio/quotestream/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(*configFlag))
	if err != nil {
		fmt.Fprintln(os.Stderr, "quoteserver: loading configuration:", err)
		return 1
	}

	logger := logging.Configure(logging.Config{
		Level:      cfg.Logging.Level,
		Structured: cfg.Logging.Structured,
	})

	if err := server.NewRunner(logger).Run(cfg); err != nil {
		logger.Error("quoteserver exited with error", "error", err)
		return 1
	}
	return 0
}
