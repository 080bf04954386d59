// Copyright (C) 2026 tacoshell authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dodoflix/tacoshell/lib/command"
	"github.com/dodoflix/tacoshell/lib/config"
	"github.com/dodoflix/tacoshell/lib/masterkey"
	"github.com/dodoflix/tacoshell/lib/registry"
	"github.com/dodoflix/tacoshell/lib/resolver"
	"github.com/dodoflix/tacoshell/lib/secretbox"
	"github.com/dodoflix/tacoshell/lib/store/sqlite"
	"github.com/dodoflix/tacoshell/lib/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "boot the core and serve the command surface until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.Set(slog.LevelInfo)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}

	backends, err := cfg.AllowedBackends()
	if err != nil {
		return err
	}
	masterKey, err := masterkey.New(log, cfg.DataDir).WithBackends(backends).Obtain()
	if err != nil {
		return err
	}
	encryptor := secretbox.New(masterKey)

	repo, err := sqlite.Open(filepath.Join(cfg.DataDir, "tacoshell.db"), log)
	if err != nil {
		return err
	}
	defer repo.Close()

	res := resolver.New(repo, encryptor)
	reg := registry.New()
	hub := command.NewHub(log)

	svc := command.New(repo, res, encryptor, reg, hub, transport.Connect, command.RuntimeOptions{
		ReadTimeout:       cfg.ReadTimeout(),
		KeepaliveInterval: cfg.KeepaliveInterval(),
		IdleSleep:         cfg.IdleSleep(),
	}, log)

	router := command.Router(svc, hub)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
