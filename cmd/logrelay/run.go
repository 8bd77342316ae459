package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/logrelay/logrelay/pkg/logger"
	"github.com/logrelay/logrelay/pkg/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline with generated traffic",
	Long: `Start the pipeline from configuration and feed it synthetic events
until interrupted. Useful for exercising sinks and observing overflow and
breaker behavior under load.

Examples:
  logrelay run
  logrelay run --config relay.yaml --rate 500 --producers 8
  logrelay run --duration 30s`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, draining...")
		cancel()
	}()

	if runDuration != "" {
		d, err := time.ParseDuration(runDuration)
		if err != nil {
			return fmt.Errorf("invalid --duration: %w", err)
		}
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p, err := buildPipeline(ctx, cfg, func(err error) {
		if verbose {
			fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	if err := p.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Pipeline running: %d producers at %d events/s each, %d sinks\n",
		producers, eventRate, len(cfg.Sinks))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < producers; i++ {
		id := i
		g.Go(func() error {
			return produce(gctx, p, id)
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := p.Close(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}

	printSummary(p, time.Since(start))
	return nil
}

// produce emits synthetic events at the configured rate until ctx ends.
func produce(ctx context.Context, p *pipeline.Pipeline, id int) error {
	log := logger.New(p).
		WithLevel(logger.LevelDebug).
		With("producer", int64(id))

	interval := time.Second / time.Duration(eventRate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := int64(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			seq++
			emit(log, seq)
		}
	}
}

func emit(log *logger.Logger, seq int64) {
	switch rand.Intn(10) {
	case 0:
		log.Error("request failed",
			logger.F{Key: "seq", Value: seq},
			logger.F{Key: "status", Value: int64(500)})
	case 1, 2:
		log.Warn("slow request",
			logger.F{Key: "seq", Value: seq},
			logger.F{Key: "latency_ms", Value: rand.Float64() * 900},
		)
	default:
		log.Info("request handled",
			logger.F{Key: "seq", Value: seq},
			logger.F{Key: "status", Value: int64(200)},
			logger.F{Key: "path", Value: "/api/v1/items"},
		)
	}
}

func printSummary(p *pipeline.Pipeline, elapsed time.Duration) {
	st := p.Stats()
	fmt.Println()
	fmt.Printf("Ran for:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Enqueued:   %d\n", st.Queue.Enqueued)
	fmt.Printf("Dropped:    %d\n", st.Queue.Dropped)
	fmt.Printf("Sampled:    %d\n", st.Queue.SampledOut)
	fmt.Printf("Batches:    %d\n", st.Batch.Flushes)
	fmt.Printf("Delivered:  %d\n", st.Dispatch.EventsDelivered)
	fmt.Printf("Failures:   %d\n", st.Dispatch.SinkFailures)
	for name, state := range st.Breakers {
		if state.String() != "closed" {
			fmt.Printf("Breaker %s: %s\n", name, state)
		}
	}
}
