package main

import (
	"context"
	"fmt"

	"github.com/logrelay/logrelay/pkg/config"
	"github.com/logrelay/logrelay/pkg/pipeline"
	"github.com/logrelay/logrelay/pkg/processors"
	"github.com/logrelay/logrelay/pkg/queue"
	"github.com/logrelay/logrelay/pkg/sink"
	"github.com/logrelay/logrelay/pkg/telemetry"
)

// loadConfig resolves configuration from the --config flag or the standard
// search paths.
func loadConfig() (*config.Config, []string, error) {
	mgr := config.NewManager()
	if configFile != "" {
		if err := mgr.LoadFile(configFile); err != nil {
			return nil, nil, err
		}
	} else {
		if err := mgr.Load(); err != nil {
			return nil, nil, err
		}
	}
	return mgr.Get(), mgr.GetPaths(), nil
}

// buildPipeline assembles the full pipeline from configuration: sinks,
// processor chain, optional tracing, and the delivery core itself.
func buildPipeline(ctx context.Context, cfg *config.Config, onError func(error)) (*pipeline.Pipeline, error) {
	opts := pipeline.DefaultOptions()
	opts.QueueCapacity = cfg.Queue.Capacity
	opts.OverflowPolicy = queue.Policy(cfg.Queue.Policy)
	opts.SamplingRate = cfg.Queue.SamplingRate
	opts.BatchSize = cfg.Batch.Size
	opts.BatchInterval = cfg.Batch.Interval
	opts.FailureThreshold = cfg.Breaker.FailureThreshold
	opts.RecoveryTimeout = cfg.Breaker.RecoveryTimeout
	opts.CacheMaxSize = cfg.Cache.MaxSize
	opts.CacheTTL = cfg.Cache.TTL
	opts.RateKeys = cfg.Cache.RateKeys
	opts.ErrorHandler = onError

	for _, sc := range cfg.Sinks {
		s, err := buildSink(sc)
		if err != nil {
			return nil, err
		}
		opts.Sinks = append(opts.Sinks, s)
	}

	if cfg.Telemetry.Enabled {
		tracer, err := telemetry.NewTracer(ctx, telemetry.OTLPConfig{
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		opts.Tracer = tracer
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}

	chain, err := buildProcessors(cfg.Processors, p)
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		if err := p.SetProcessors(chain); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// buildSink constructs one sink from its declaration.
func buildSink(sc config.SinkConfig) (sink.Sink, error) {
	switch sc.Type {
	case "console":
		return sink.NewConsoleSink(nil), nil
	case "file":
		return sink.NewFileSink(sc.Path), nil
	case "redis":
		return sink.NewRedisSink(sink.RedisConfig{
			Addr:     sc.Addr,
			Password: sc.Password,
			DB:       sc.DB,
			Stream:   sc.Stream,
			MaxLen:   sc.MaxLen,
		}), nil
	case "duckdb":
		return sink.NewDuckDBSink(sink.DuckDBConfig{Path: sc.Path}), nil
	case "s3":
		return sink.NewS3Sink(sink.S3Config{
			Bucket:          sc.Bucket,
			Prefix:          sc.Prefix,
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
		}), nil
	case "webhook":
		return sink.NewWebhookSink(sink.WebhookConfig{
			URL:     sc.URL,
			Headers: sc.Headers,
		}), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", sc.Type)
	}
}

// buildProcessors constructs the pre-enqueue chain in a fixed order:
// filters, rename, redact, rate limit, sample.
func buildProcessors(pc config.ProcessorsConfig, p *pipeline.Pipeline) (processors.Chain, error) {
	var chain processors.Chain

	for _, fc := range pc.Filters {
		cond := []processors.Condition{{
			Path:  fc.Path,
			Op:    processors.Operator(fc.Op),
			Value: fc.Value,
		}}
		var (
			f   processors.Processor
			err error
		)
		if fc.Action == "drop" {
			f, err = processors.NewDropFilter(cond)
		} else {
			f, err = processors.NewFilter(cond)
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
	}

	if len(pc.RenameKeys) > 0 {
		chain = append(chain, processors.NewRename(pc.RenameKeys))
	}
	if len(pc.RedactKeys) > 0 {
		chain = append(chain, processors.NewRedact(pc.RedactKeys, ""))
	}
	if pc.RateLimit.Enabled {
		rl, err := processors.NewRateLimit(p.RateTracker(), pc.RateLimit.KeyField, pc.RateLimit.Limit, pc.RateLimit.Window)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rl)
	}
	if pc.SampleRate > 0 && pc.SampleRate < 1 {
		s, err := processors.NewSample(pc.SampleRate)
		if err != nil {
			return nil, err
		}
		chain = append(chain, s)
	}

	return chain, nil
}
