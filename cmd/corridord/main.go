// Command corridord serves ranked cross-border payment routes over HTTP and
// GraphQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-corridors/pkg/config"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CORRIDOR_CONFIG"), "YAML config file (env CORRIDOR_CONFIG)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corridord: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Logging.Level))
	logging.SetDefaultLogger(logger)
	logger.Info("corridord starting",
		logging.String("version", version),
		logging.String("source", cfg.Graph.Source),
		logging.String("addr", cfg.Addr()),
	)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, metrics.DefaultRegistry())
	if err != nil {
		logger.Error("startup failed", logging.Error(err))
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		logger.Error("server stopped", logging.Error(err))
		a.close()
		os.Exit(1)
	}
	logger.Info("corridord stopped")
}
