package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/KaramelBytes/vizloom-cli/internal/logging"
	"github.com/KaramelBytes/vizloom-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
	serveLogFile  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP service",
	Long: `Serves /api/analyze, /api/chart, /api/render, /list_archive and /get_image.
Charts are drawn on a single server-side canvas and archived under data_dir.`,
	Example: `  vizloom serve --addr 127.0.0.1:5000
  vizloom serve --provider ollama --model qwen2.5-coder:7b`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		level := logging.ParseLevel(c.LogLevel)
		var logger *logging.Logger
		if serveLogFile {
			logger = logging.NewFileLogger(level, filepath.Join(c.DataDir, "logs"))
		} else {
			logger = logging.New(level, cmd.ErrOrStderr())
		}
		defer logger.Close()

		store, err := openStore(ctx, c)
		if err != nil {
			return err
		}
		defer store.Close()

		svc, providerName, err := newService(c, serviceOptions{
			Provider: serveProvider,
			Model:    serveModel,
			Canvas:   newCanvas(c, 0, 0, ""),
			Store:    store,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		srv := server.New(svc, logger, c.PreviewLines)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on http://%s (provider %s, archive %s)\n", serveAddr, providerName, store.Root())
		logger.Info("listening on %s", serveAddr)
		if err := srv.ListenAndServe(ctx, serveAddr); err != nil && ctx.Err() == nil {
			return err
		}
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5000", "listen address")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "provider: deepseek|openai|ollama (default from config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "chat model (default from config)")
	serveCmd.Flags().BoolVar(&serveLogFile, "log-file", false, "write logs to data_dir/logs/YYYY-MM-DD.log instead of stderr")
}
