package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Chocolatl/nekopara/internal/checkpoint"
	"github.com/Chocolatl/nekopara/internal/config"
	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/internal/eventbus"
	"github.com/Chocolatl/nekopara/internal/storage"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

// app bundles the wired services behind the run and resume commands.
type app struct {
	cfg     *config.Config
	manager *config.Manager
	logs    *logx.Service
	log     logx.Logger
	bus     eventbus.Bus
	store   storage.Store
	sched   *crawl.Scheduler
}

// buildApp loads config from cfgPath and wires logging, storage and the
// scheduler. A missing config file falls back to defaults with hot reload
// disabled.
func buildApp() (*app, error) {
	manager := config.NewManager(cfgPath)
	cfg, err := manager.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
		manager = nil
	}

	logs, log := logx.New(cfg.LogxConfig())
	if manager != nil {
		manager.SetLogger(log.With(logx.String("component", "config")))
	}

	store, err := storage.Open(cfg.Storage, log.With(logx.String("component", "storage")))
	if err != nil {
		logs.Close()
		return nil, err
	}

	schedCfg, err := cfg.SchedulerConfig()
	if err != nil {
		if store != nil {
			store.Close()
		}
		logs.Close()
		return nil, err
	}

	bus := eventbus.New()
	sched := crawl.New(schedCfg, log.With(logx.String("component", "crawl")), bus)

	return &app{
		cfg:     cfg,
		manager: manager,
		logs:    logs,
		log:     log,
		bus:     bus,
		store:   store,
		sched:   sched,
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	a.logs.Close()
}

// runUntilDone drives one crawl run: it subscribes to scheduler events,
// launches the background workers (config watch, checkpointing), calls start,
// then blocks until the run finishes or a signal arrives. The final tree is
// saved under name before results are printed.
func (a *app) runUntilDone(cmd *cobra.Command, name string, start func() error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.manager != nil {
		g.Go(func() error { return a.manager.Watch(gctx) })
		ch := a.manager.Subscribe(4)
		g.Go(func() error {
			defer a.manager.Unsubscribe(ch)
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg, ok := <-ch:
					if !ok {
						return nil
					}
					a.logs.Apply(cfg.LogxConfig())
				}
			}
		})
	}

	if a.store != nil && a.cfg.Checkpoint.Enabled {
		cp, err := checkpoint.New(checkpoint.Config{
			Schedule: a.cfg.Checkpoint.Schedule,
			Name:     name,
		}, a.sched, a.store, a.log.With(logx.String("component", "checkpoint")))
		if err != nil {
			return err
		}
		g.Go(func() error { return cp.Run(gctx) })
	}

	var failures atomic.Int64
	offFail := a.sched.OnFail(func(ev crawl.FailEvent) {
		failures.Add(1)
		a.log.Warn("task failed",
			logx.String("template", ev.Template),
			logx.String("url", ev.URL),
			logx.Err(ev.Err))
	})
	defer offFail()

	done := make(chan struct{})
	offDone := a.sched.OnDone(func() { close(done) })
	defer offDone()

	if err := start(); err != nil {
		return err
	}

	interrupted := false
	select {
	case <-done:
	case <-ctx.Done():
		interrupted = true
		a.log.Info("interrupt received, stopping")
		a.sched.Stop()
		// Give in-flight tasks a moment to land their commits.
		time.Sleep(200 * time.Millisecond)
	}
	cancel()
	if err := g.Wait(); err != nil {
		a.log.Warn("background worker exited", logx.Err(err))
	}

	if a.store != nil {
		if root := a.sched.Snapshot(); root != nil {
			if err := a.store.SaveSnapshot(context.Background(), name, root); err != nil {
				a.log.Error("final snapshot save failed", logx.String("name", name), logx.Err(err))
			} else {
				a.log.Info("snapshot saved", logx.String("name", name))
			}
		}
	}

	res := a.sched.Results()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "complete: %v\n", res.Complete)
	fmt.Fprintf(out, "failures: %d\n", failures.Load())
	fmt.Fprintf(out, "results:  %d\n", len(res.List))
	for _, item := range res.List {
		fmt.Fprintf(out, "  %v\n", item)
	}
	if interrupted && a.store != nil {
		fmt.Fprintf(out, "interrupted; continue with 'nekopara resume --name %s'\n", name)
	}
	return nil
}
