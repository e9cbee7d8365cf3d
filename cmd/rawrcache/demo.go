package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	gorawrcache "github.com/Keksclan/goRawrCache"
	"github.com/Keksclan/goRawrCache/interceptors"
	"github.com/Keksclan/goRawrCache/internal/logger"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/provider/memory"
	"github.com/Keksclan/goRawrCache/tracing"
)

var (
	demoSquare = invocation.NewMethod("demo.Calculator", "Square", "int")
	demoReset  = invocation.NewMethod("demo.Calculator", "Reset")
)

func demoCmd(g *globals) *cobra.Command {
	var (
		calls       int
		keys        int
		delay       time.Duration
		trace       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a cached computation in memory and print what happens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			level := g.logLevel
			if level == "" {
				level = "info"
			}
			log := logger.New(cmd.ErrOrStderr(), level, g.pretty)

			driver, err := memory.New(memory.Config{Caches: []string{"squares"}})
			if err != nil {
				return err
			}
			defer driver.Close()

			reg := prometheus.NewRegistry()
			opts := append(gorawrcache.DefaultOptions(),
				gorawrcache.WithLogger(log),
				gorawrcache.WithMetrics(reg),
				gorawrcache.WithProvider(provider.NewFacade(driver, provider.WithLogger(log))),
				gorawrcache.WithCaching(policy.NewAnnotations[policy.CacheModel]().
					AnnotateMethod(demoSquare, policy.CacheModel{Cache: "squares", TTL: time.Minute})),
				gorawrcache.WithFlushing(policy.NewAnnotations[policy.FlushModel]().
					AnnotateMethod(demoReset, policy.FlushModel{Caches: []string{"squares"}})),
				gorawrcache.WithListener(interceptors.LoggingListener(log)),
			)

			if trace {
				exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.OutOrStdout()), stdouttrace.WithPrettyPrint())
				if err != nil {
					return fmt.Errorf("stdout exporter: %w", err)
				}
				tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
				defer func() { _ = tp.Shutdown(context.Background()) }()
				opts = append(opts, gorawrcache.WithTracing(&tracing.Config{TracerProvider: tp}))
			}

			engine, err := gorawrcache.New(opts...)
			if err != nil {
				return err
			}

			square := gorawrcache.WrapMethod(engine, demoSquare, func(ctx context.Context, n int) (int, error) {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return 0, ctx.Err()
				}
				return n * n, nil
			})
			reset := gorawrcache.WrapMethod(engine, demoReset, func(context.Context, struct{}) (bool, error) {
				return true, nil
			})

			out := cmd.OutOrStdout()
			run := func(round string) error {
				for i := range calls {
					n := i%max(keys, 1) + 1
					start := time.Now()
					v, err := square(ctx, n)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s call %d: square(%d) = %d in %s\n", round, i+1, n, v, time.Since(start).Round(time.Microsecond))
				}
				return nil
			}

			if err := run("warm"); err != nil {
				return err
			}
			if _, err := reset(ctx, struct{}{}); err != nil {
				return err
			}
			fmt.Fprintln(out, "cache flushed")
			if err := run("cold"); err != nil {
				return err
			}

			if metricsAddr == "" {
				return nil
			}
			srv := &http.Server{Addr: metricsAddr, Handler: engine.MetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				<-ctx.Done()
				_ = srv.Shutdown(context.Background())
			}()
			log.Info().Str("addr", metricsAddr).Msg("serving metrics until interrupted")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&calls, "calls", 6, "Number of calls per round")
	cmd.Flags().IntVar(&keys, "keys", 3, "Number of distinct arguments")
	cmd.Flags().DurationVar(&delay, "delay", 20*time.Millisecond, "Simulated cost of a miss")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print OpenTelemetry spans to stdout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address after the run")
	return cmd
}
