// Command rendezvousd runs the mirrorcast rendezvous: the TCP signal
// listener that announces channel start/stop, the QUIC listener publishers
// and subscribers dial to register, and an optional read-only HTTP status
// endpoint over the channel registry.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"mirrorcast/internal/config"
	"mirrorcast/internal/reliable"
	"mirrorcast/internal/rendezvous"
	"mirrorcast/internal/status"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	flag.Parse()

	if *configPath == "" {
		slog.Error("rendezvousd requires -config")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	registry := rendezvous.NewRegistry()

	signalSrv, err := rendezvous.New(cfg.Rendezvous.ListenSignal, registry)
	if err != nil {
		slog.Error("start signal listener", "err", err)
		os.Exit(1)
	}
	defer signalSrv.Close()
	slog.Info("signal listener up", "addr", signalSrv.Addr())

	reliableLn, err := reliable.Listen(cfg.Rendezvous.ListenReliable)
	if err != nil {
		slog.Error("start reliable listener", "err", err)
		os.Exit(1)
	}
	defer reliableLn.Close()
	slog.Info("reliable listener up", "addr", reliableLn.Addr())

	go func() {
		if err := signalSrv.Serve(); err != nil {
			slog.Warn("signal listener stopped", "err", err)
		}
	}()

	go func() {
		if err := rendezvous.RunAcceptor(ctx, reliableLn, registry); err != nil {
			slog.Warn("reliable acceptor stopped", "err", err)
		}
	}()

	if cfg.Status.Listen != "" {
		statusSrv := status.New(registry)
		go func() {
			if err := statusSrv.Start(cfg.Status.Listen); err != nil {
				slog.Warn("status server stopped", "err", err)
			}
		}()
		slog.Info("status endpoint up", "addr", cfg.Status.Listen)
	}

	<-ctx.Done()
	slog.Info("rendezvousd shutting down")
}
