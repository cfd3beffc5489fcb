// Command catalog-browser is an interactive terminal browser for the course
// catalog API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/browse"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file with CATALOG_* settings")
	query := flag.String("query", "", "initial listing, e.g. \"categoryId=web&level=BEGINNER&sort=price-asc\"")
	flag.Parse()

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *query != "" {
		cfg.Query = *query
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "catalog-browser: %v\n", err)
		os.Exit(1)
	}
}

// app is one interactive session.
type app struct {
	config     *Config
	api        *client.Client
	browser    *browse.Browser
	categories []catalog.Category
	out        io.Writer
	logger     zerolog.Logger
}

// run wires the session from cfg and reads commands from in until EOF or quit.
func run(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: cfg.LogPretty, Output: os.Stderr})
	logger := logging.NewLogger(logging.ComponentCLI)

	redisClient := connectRedis(ctx, cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	apiCfg := client.DefaultConfig(cfg.BaseURL, cfg.UserAgent)
	apiCfg.Redis = redisClient
	api, err := client.New(apiCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer api.Close()

	filter, mode, err := parseQuery(cfg.Query)
	if err != nil {
		return err
	}
	scope, err := browse.ParseSortScope(cfg.SortScope)
	if err != nil {
		return err
	}

	b, err := browse.New(browse.Config{
		Fetcher:       api,
		PageSize:      cfg.PageSize,
		TTL:           cfg.CacheTTL,
		Timeout:       cfg.Timeout,
		SortScope:     scope,
		InitialFilter: filter,
		InitialSort:   mode,
	})
	if err != nil {
		return fmt.Errorf("create browser: %w", err)
	}
	defer b.Close()

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	a := &app{config: cfg, api: api, browser: b, out: out, logger: logger}
	a.loadCategories(ctx)

	logger.Info().Str("base_url", cfg.BaseURL).Str("sort_scope", scope.String()).Msg("Session started")
	fmt.Fprintln(out, "Type help for commands.")

	if err := b.Start(); err != nil {
		return err
	}
	b.Wait()
	a.render()

	return a.repl(ctx, in)
}

// repl executes one command per line and redraws after each state change.
func (a *app) repl(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(a.out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				return nil
			}
			line = l
		}

		cmd, err := parseCommand(line)
		if err != nil {
			printError(a.out, err)
			continue
		}

		err = a.execute(ctx, cmd)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			printError(a.out, err)
			continue
		}

		if redraws(cmd.name) {
			a.browser.Wait()
			a.render()
		}
	}
}

func redraws(name string) bool {
	switch name {
	case "cats", "config", "help":
		return false
	}
	return true
}

func (a *app) render() {
	renderView(a.out, a.browser.View(), a.categories)
}

// loadCategories refreshes the category list. Failures keep the old list.
func (a *app) loadCategories(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	categories, err := a.api.Categories(reqCtx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to load categories")
		return
	}
	a.categories = categories
}

// connectRedis returns a client for url, or nil when url is empty or the
// server is unreachable. Both "redis://" URLs and bare host:port are accepted.
func connectRedis(ctx context.Context, url string, logger zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}

	opts := &redis.Options{Addr: url}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid redis url, category cache disabled")
			return nil
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, category cache disabled")
		rdb.Close()
		return nil
	}

	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
