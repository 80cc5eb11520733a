package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/viditforsv/quizplayer/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export journaled play-throughs as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db-driver", string(store.DriverSQLite), "Journal database driver (sqlite, postgres)")
	f.String("db", "quizplayer.db", "Journal database path or DSN")
	f.String("quiz-id", "", "Only export play-throughs of this quiz")
	f.Bool("attempts", false, "Include the attempt recording log")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f, "info")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	if last, err := db.LastExport(ctx); err != nil {
		slog.Warn("read last export time", "error", err)
	} else if last != nil {
		slog.Info("previous export", "at", last.Format("2006-01-02 15:04:05"))
	}

	export, err := db.ExportAllSessions(ctx, v.GetString("quiz-id"), v.GetBool("attempts"))
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", export.NumSessions, "output", outPath)
	return nil
}
