// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/nnsW3/core-lido/api"
	"github.com/nnsW3/core-lido/eventdb"
	"github.com/nnsW3/core-lido/log"
	"github.com/nnsW3/core-lido/metrics"
	"github.com/nnsW3/core-lido/registry"
	"github.com/nnsW3/core-lido/store"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "registry",
		Usage:   "Node operator registry service",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			persistFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			pprofFlag,
			enableMetricsFlag,
			cacheFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	if err := initLogger(ctx); err != nil {
		return err
	}

	cfg, authorizer, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	var (
		db     *store.Store
		events *eventdb.EventDB
	)
	if ctx.Bool(persistFlag.Name) {
		dataDir := ctx.String(dataDirFlag.Name)
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return err
		}
		if db, err = store.New(filepath.Join(dataDir, "snapshot.db"), store.Options{
			CacheSize: int(ctx.Uint64(cacheFlag.Name)),
		}); err != nil {
			return err
		}
		if events, err = eventdb.New(filepath.Join(dataDir, "records.db")); err != nil {
			return err
		}
	} else {
		if db, err = store.NewMem(); err != nil {
			return err
		}
		if events, err = eventdb.NewMem(); err != nil {
			return err
		}
	}
	defer func() { logger.Info("closing snapshot database..."); db.Close() }()
	defer func() { logger.Info("closing record database..."); events.Close() }()

	reg := registry.New(cfg, authorizer, nil)
	if err := reg.Restore(db); err != nil {
		return err
	}

	reg.OnChange(func(cs *registry.ChangeSet) {
		if err := events.Append(cs); err != nil {
			logger.Warn("failed to append change records", "seq", cs.Seq, "error", err)
		}
	})

	// snapshot on every committed change, coalescing bursts
	changes, cancelSub := reg.Subscribe(1024)
	saved := make(chan struct{})
	go func() {
		defer close(saved)
		for cs := range changes {
			for {
				select {
				case _, ok := <-changes:
					if !ok {
						return
					}
					continue
				default:
				}
				break
			}
			if err := reg.Save(db); err != nil {
				logger.Warn("failed to save snapshot", "seq", cs.Seq, "error", err)
			}
		}
	}()

	handler, closeAPI := api.New(reg, events, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})

	srv := &http.Server{
		Addr:    ctx.String(apiAddrFlag.Name),
		Handler: handler,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("API server started", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		return err
	case <-handleExitSignal():
	}

	logger.Info("stopping API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	closeAPI()

	cancelSub()
	<-saved
	// final snapshot catches changes committed after the last save
	return reg.Save(db)
}
