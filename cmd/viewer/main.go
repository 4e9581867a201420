package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/config"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/observability"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/server"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/logger"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapdoc"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/metrics"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/session"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "viewer",
		Short:         "Load point, H3 and GeoJSON layers into a styled map session",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newServeCmd(), newInspectCmd(), newExportCmd(), newValidateCmd())
	return root
}

func appLogger(cfg config.Config, component string) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Component: component,
	}, os.Stderr)
	return logger.NewSlog(&zl)
}

func newSession(cfg config.Config, log *slog.Logger) (*session.Session, error) {
	return session.New(session.Config{
		ChunkSize:        cfg.IngestChunkSize,
		SampleRows:       cfg.ClassifySampleRows,
		StyleCacheSize:   cfg.StyleCacheSize,
		DefaultColor:     cfg.DefaultLayerColor,
		DefaultOpacity:   cfg.DefaultLayerOpacity,
		DefaultPointSize: cfg.DefaultPointSize,
		Basemap:          cfg.Basemap,
		Logger:           log,
	})
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Serve the map session over HTTP, optionally preloading layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.Addr = addr
			}
			log := appLogger(cfg, "viewer")
			observability.ExposeBuildInfo(Version)
			log.Info("starting viewer", "addr", cfg.Addr, "version", Version, "basemap", cfg.Basemap)

			sess, err := newSession(cfg, log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := loadFiles(ctx, sess, args); err != nil {
				return err
			}

			p := metrics.Init(metrics.Config{
				Enabled: cfg.Metrics.Enabled,
				Addr:    cfg.Metrics.Addr,
				Path:    cfg.Metrics.Path,
			})
			p.TrackLayers(sess)
			go func() {
				if err := p.Serve(ctx, log); err != nil {
					log.Error("metrics server exited", "err", err)
				}
			}()

			if err := server.Run(ctx, cfg, log, sess, p.Handler()); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

func loadFiles(ctx context.Context, sess *session.Session, paths []string) error {
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if _, _, err := sess.Ingest(ctx, session.Upload{Name: filepath.Base(p), Data: data}, session.IngestOptions{}); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Classify a file and report what a layer built from it would hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			sess, err := newSession(cfg, logger.Discard())
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			up := session.Upload{Name: filepath.Base(args[0]), Data: data}
			in, err := sess.Inspect(cmd.Context(), up)
			if err != nil {
				return err
			}
			info, rep, err := sess.Ingest(cmd.Context(), up, session.IngestOptions{})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"inspection": in,
				"layer":      info,
				"report":     rep,
				"view":       sess.View(),
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "export FILE...",
		Short: "Load files into a fresh session and print its map configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			sess, err := newSession(cfg, logger.Discard())
			if err != nil {
				return err
			}
			if err := loadFiles(cmd.Context(), sess, args); err != nil {
				return err
			}
			doc, err := sess.Export()
			if err != nil {
				return err
			}
			var b []byte
			if asYAML {
				b, err = doc.YAML()
			} else {
				b, err = doc.JSON()
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().BoolVarP(&asYAML, "yaml", "y", false, "output YAML instead of JSON")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG",
		Short: "Check that a saved map configuration imports cleanly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var doc mapdoc.Document
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				doc, err = mapdoc.DecodeYAML(data)
			default:
				doc, err = mapdoc.Decode(data)
			}
			if err != nil {
				return err
			}
			sess, err := newSession(config.FromEnv(), logger.Discard())
			if err != nil {
				return err
			}
			if err := sess.Import(cmd.Context(), doc); err != nil {
				return err
			}
			for _, l := range sess.Layers() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%d records\n", l.ID, l.Kind, l.Name, l.Records)
			}
			return nil
		},
	}
}
