package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/candlefeed/internal/config"
	"github.com/sawpanic/candlefeed/internal/feed"
	"github.com/sawpanic/candlefeed/internal/httpserver"
	"github.com/sawpanic/candlefeed/internal/metrics"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/registry"
	"github.com/sawpanic/candlefeed/internal/transport"

	_ "github.com/sawpanic/candlefeed/adapters/binance"
	_ "github.com/sawpanic/candlefeed/adapters/mockexchange"
)

const (
	appName = "candlefeed"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Unified multi-exchange OHLCV candle collection engine",
		Version: version,
		Run:     runDefaultEntry,
	}

	listCmd := &cobra.Command{
		Use:   "list-exchanges",
		Short: "List every registered exchange adapter",
		RunE:  runListExchanges,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start collecting candles for the feeds in a config file",
		RunE:  runRun,
	}
	runCmd.Flags().String("config", "candlefeed.yaml", "Path to the feed configuration file")
	runCmd.Flags().Bool("http", true, "Serve /healthz and /metrics over HTTP")
	runCmd.Flags().String("http-host", "127.0.0.1", "HTTP server bind host")
	runCmd.Flags().Int("http-port", 8080, "HTTP server bind port")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the candlefeed version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(appName, version)
		},
	}

	rootCmd.AddCommand(listCmd, runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("candlefeed exited with error")
		os.Exit(1)
	}
}

func runDefaultEntry(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "candlefeed is a non-interactive tool. Use subcommands:\n\n")
		fmt.Fprintf(os.Stderr, "  candlefeed list-exchanges\n")
		fmt.Fprintf(os.Stderr, "  candlefeed run --config candlefeed.yaml\n")
		fmt.Fprintf(os.Stderr, "  candlefeed --help\n")
		os.Exit(2)
	}
	_ = cmd.Help()
}

func runListExchanges(cmd *cobra.Command, args []string) error {
	for _, name := range registry.List() {
		fmt.Println(name)
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	enableHTTP, _ := cmd.Flags().GetBool("http")
	httpHost, _ := cmd.Flags().GetString("http-host")
	httpPort, _ := cmd.Flags().GetInt("http-port")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	reg.MustRegister(prometheus.DefaultRegisterer)

	manager := &feedManager{}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hostCfg := &transport.HostConfig{
		TotalTimeout:      time.Duration(cfg.Defaults.TotalTimeoutMS) * time.Millisecond,
		ConnectTimeout:    time.Duration(cfg.Defaults.ConnectTimeoutMS) * time.Millisecond,
		MaxConnsPerHost:   cfg.Defaults.MaxConnsPerHost,
		RequestsPerSecond: cfg.Defaults.RequestsPerSecond,
		RequestsBurst:     cfg.Defaults.RequestsBurst,
	}

	for _, fc := range cfg.Feeds {
		network := netconfig.Production()
		if ex, ok := cfg.Exchanges[fc.Exchange]; ok {
			network = ex.NetworkConfig()
		}

		capacity := fc.Capacity
		if capacity == 0 {
			capacity = cfg.Defaults.Capacity
		}
		breakers := cfg.Defaults.BreakersEnabled

		f, err := feed.New(feed.Config{
			Exchange:   fc.Exchange,
			Pair:       fc.Pair,
			Interval:   fc.Interval,
			Mode:       feed.Mode(fc.Mode),
			Capacity:   capacity,
			Network:    network,
			HostConfig: hostCfg,
			Metrics:    reg,
			Breakers:   &breakers,
		})
		if err != nil {
			return fmt.Errorf("building feed %s/%s/%s: %w", fc.Exchange, fc.Pair, fc.Interval, err)
		}
		if err := f.Start(ctx); err != nil {
			return fmt.Errorf("starting feed %s/%s/%s: %w", fc.Exchange, fc.Pair, fc.Interval, err)
		}
		manager.add(f)
		log.Info().Str("exchange", fc.Exchange).Str("pair", fc.Pair).Str("interval", fc.Interval).
			Str("mode", string(f.Mode())).Msg("feed started")
	}

	var srv *httpserver.Server
	if enableHTTP {
		srv, err = httpserver.New(httpserver.Config{
			Host:         httpHost,
			Port:         httpPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}, manager)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("httpserver stopped")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	manager.stopAll()
	return nil
}

// feedManager holds every running feed for a process, doubling as the
// httpserver.FeedLister implementation.
type feedManager struct {
	feeds []*feed.Feed
}

func (m *feedManager) add(f *feed.Feed) { m.feeds = append(m.feeds, f) }

func (m *feedManager) Feeds() []*feed.Feed { return m.feeds }

func (m *feedManager) stopAll() {
	for _, f := range m.feeds {
		if err := f.Stop(); err != nil {
			log.Warn().Err(err).Msg("feed stop failed")
		}
	}
}
