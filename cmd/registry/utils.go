// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nnsW3/core-lido/log"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".registry"
	}
	return filepath.Join(home, ".registry")
}

func initLogger(ctx *cli.Context) error {
	switch ctx.String(verbosityFlag.Name) {
	case "debug":
		log.SetLevel(slog.LevelDebug)
	case "info":
		log.SetLevel(slog.LevelInfo)
	case "warn":
		log.SetLevel(slog.LevelWarn)
	case "error":
		log.SetLevel(slog.LevelError)
	default:
		return errors.Errorf("verbosity: expected debug|info|warn|error, got %q", ctx.String(verbosityFlag.Name))
	}
	return nil
}

// handleExitSignal returns a channel closed on SIGINT/SIGTERM.
func handleExitSignal() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		close(done)
	}()
	return done
}
