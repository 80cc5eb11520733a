package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viditforsv/quizplayer/internal/console"
	appI18n "github.com/viditforsv/quizplayer/internal/i18n"
	"github.com/viditforsv/quizplayer/internal/model"
	"github.com/viditforsv/quizplayer/internal/player"
	"github.com/viditforsv/quizplayer/internal/quizfile"
	"github.com/viditforsv/quizplayer/internal/session"
	"github.com/viditforsv/quizplayer/internal/store"
)

func playCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [quiz-id]",
		Short: "Play a quiz in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlay,
	}
	f := cmd.Flags()
	f.StringP("quiz-file", "f", "", "Play a quiz from a YAML or JSON file instead of the backend")
	addBackendFlags(f)
	addLLMFlags(f)
	f.String("db-driver", string(store.DriverSQLite), "Journal database driver (sqlite, postgres)")
	f.String("db", "", "Journal database path or DSN (empty = do not journal)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	addLogFlags(f, "warn")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var quizID string
	if len(args) > 0 {
		quizID = args[0]
	}

	api := newBackend(v)
	var (
		source   session.Source
		recorder *player.Recorder
		opts     = []session.Option{session.WithLogger(slog.Default())}
	)
	if path := v.GetString("quiz-file"); path != "" {
		b, err := quizfile.Load(path)
		if err != nil {
			return fmt.Errorf("load quiz file: %w", err)
		}
		source = quizfile.File{Bundle: b}
	} else {
		if api == nil {
			return errors.New("no quiz source: set --quiz-file or --backend-url")
		}
		if quizID == "" {
			return errors.New("a quiz id is required when playing from the backend")
		}
		source = api
	}

	var sinkOpts []player.RecorderOption
	if dsn := v.GetString("db"); dsn != "" {
		db, err := store.New(store.Driver(v.GetString("db-driver")), dsn)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		opts = append(opts, session.WithJournal(db))
		sinkOpts = append(sinkOpts, player.WithSink(db))
	}
	if api != nil {
		recorder = player.NewRecorder(api, append(sinkOpts,
			player.WithTimeout(v.GetDuration("backend-timeout")),
			player.WithLogger(slog.Default()),
		)...)
	}
	if h := newHinter(v); h != nil {
		opts = append(opts, session.WithHinter(h))
	}

	players := session.New(source, recorder, opts...)
	defer players.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))
	ctx = model.ContextWithLang(ctx, lang)

	id, p, err := players.Create(ctx, quizID)
	if err != nil {
		return err
	}
	hint := func(ctx context.Context, qid string) (string, error) {
		res, err := players.Hint(ctx, id, qid)
		return res.Text, err
	}

	err = console.Run(ctx, os.Stdin, os.Stdout, p, hint)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
