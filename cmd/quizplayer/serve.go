package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/viditforsv/quizplayer/internal/cache"
	"github.com/viditforsv/quizplayer/internal/handler"
	appI18n "github.com/viditforsv/quizplayer/internal/i18n"
	"github.com/viditforsv/quizplayer/internal/player"
	"github.com/viditforsv/quizplayer/internal/questionbank"
	"github.com/viditforsv/quizplayer/internal/quizfile"
	"github.com/viditforsv/quizplayer/internal/session"
	"github.com/viditforsv/quizplayer/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz player API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db-driver", string(store.DriverSQLite), "Journal database driver (sqlite, postgres)")
	f.String("db", "quizplayer.db", "Journal database path or DSN")
	f.String("quiz-dir", "", "Serve quizzes from <id>.yaml/.json files in this directory instead of the backend")
	addBackendFlags(f)
	f.String("redis-addr", "", "Redis address for player snapshots (empty = in memory only)")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.Duration("redis-ttl", cache.DefaultTTL, "Lifetime of a cached player snapshot")
	f.Duration("player-idle", cache.DefaultTTL, "Drop players unused for this long from memory")
	addLLMFlags(f)
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins (repeatable)")
	addLogFlags(f, "info")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	api := newBackend(v)
	var (
		source   session.Source
		bank     questionbank.Searcher
		recorder *player.Recorder
	)
	switch dir := v.GetString("quiz-dir"); {
	case dir != "":
		source = quizfile.Source{Dir: dir}
	case api != nil:
		source = api
	default:
		return errors.New("no quiz source: set --backend-url or --quiz-dir")
	}
	if api != nil {
		bank = api
		recorder = player.NewRecorder(api,
			player.WithSink(db),
			player.WithTimeout(v.GetDuration("backend-timeout")),
			player.WithLogger(slog.Default()),
		)
	} else {
		slog.Warn("no backend configured: attempts are not recorded and the question bank is unavailable")
	}

	opts := []session.Option{
		session.WithJournal(db),
		session.WithLogger(slog.Default()),
	}
	if addr := v.GetString("redis-addr"); addr != "" {
		rc := cache.NewRedis(addr, v.GetString("redis-password"), v.GetInt("redis-db"), v.GetDuration("redis-ttl"))
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("redis health check: %w", err)
		}
		ids, err := rc.PlayerIDs(ctx)
		if err != nil {
			return fmt.Errorf("list cached players: %w", err)
		}
		slog.Info("redis snapshot cache OK", "addr", addr, "cached_players", len(ids))
		opts = append(opts, session.WithCache(rc))
	}
	if h := newHinter(v); h != nil {
		opts = append(opts, session.WithHinter(h))
	}

	players := session.New(source, recorder, opts...)
	defer players.Close()

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(handler.New(players, bank, db), v.GetStringSlice("cors-origins")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"backend_url", v.GetString("backend-url"),
		"quiz_dir", v.GetString("quiz-dir"),
		"db_driver", v.GetString("db-driver"),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		idle := v.GetDuration("player-idle")
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				players.Evict(idle)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "players", players.Len())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
