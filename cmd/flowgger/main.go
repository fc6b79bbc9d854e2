// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the flowgger log relay.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"
	_ "golang.org/x/crypto/x509roots/fallback" // register root TLS certificates for production container images

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/ctxutil"
	"github.com/cdumay/flowgger/internal/debug"
	"github.com/cdumay/flowgger/internal/logging"
	"github.com/cdumay/flowgger/internal/pipeline"
)

// cli represents the command-line flags. Keep it small: almost everything
// that shapes the pipeline lives in the TOML config file, not on the
// command line.
var cli struct {
	Config string `arg:"" default:"flowgger.toml" help:"Path to the TOML configuration file."`

	Version bool `default:"false" help:"Print version to stdout and exit." env:"-"`
}

var kongOptions = []kong.Option{
	kong.DefaultEnvars("FLOWGGER"),
}

func main() {
	kong.Parse(&cli, kongOptions...)

	if cli.Version {
		_, _ = os.Stdout.WriteString("flowgger (dev build)\n")
		return
	}

	run()
}

// run loads the configuration, wires the pipeline, and blocks until a
// termination signal is received.
func run() {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", err)
	}

	level, err := logging.ParseLevel(cfg.StringDefault("log.level", "info"))
	if err != nil {
		log.Fatalf("Invalid log.level: %s", err)
	}

	logging.SetupDefault(&logging.NewHandlerOpts{
		Base:  cfg.StringDefault("log.format", "console"),
		Level: level,
	}, "")

	logger := slog.Default()

	ctx, stop := ctxutil.SigTerm(context.Background())
	defer stop()

	go func() {
		<-ctx.Done()
		logger.InfoContext(ctx, "Stopping")

		// a second signal should stop the process immediately
		stop()
	}()

	registerer := prometheus.NewRegistry()

	p, err := pipeline.Build(cfg, logger, registerer)
	if err != nil {
		logger.LogAttrs(ctx, logging.LevelFatal, "Failed to build pipeline", logging.Error(err))
		os.Exit(1)
	}

	var wg sync.WaitGroup

	if addr := cfg.StringDefault("debug.listen", ""); addr != "" {
		wg.Add(1)

		go func() {
			defer wg.Done()

			l := logging.WithName(logger, "debug")

			h, err := debug.Listen(&debug.ListenOpts{
				TCPAddr: addr,
				L:       l,
				R:       registerer,
			})
			if err != nil {
				l.LogAttrs(ctx, logging.LevelFatal, "Failed to create debug handler", logging.Error(err))
				return
			}

			h.Serve(ctx)
		}()
	}

	logger.InfoContext(ctx, "Starting flowgger")

	if err := p.Run(ctx); err != nil {
		logger.LogAttrs(ctx, logging.LevelFatal, "Pipeline stopped with an error", logging.Error(err))
	}

	wg.Wait()
}
