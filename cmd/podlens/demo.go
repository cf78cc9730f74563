package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/podlens/podlens/internal/stub"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a local demo API server with a small built-in corpus",
	Long: `Run a local demo API server with a small built-in corpus. Point the
client at it to try podlens without the hosted API:

  podlens demo --port 8000
  PODLENS_API_URL=http://127.0.0.1:8000 podlens chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		queryLimit, _ := cmd.Flags().GetInt("query-limit")
		verifyToken, _ := cmd.Flags().GetString("verify-token")

		opts := []stub.Option{stub.WithQueryLimit(queryLimit)}
		if verifyToken != "" {
			opts = append(opts, stub.WithVerificationToken(verifyToken))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		srv := &http.Server{
			Addr:    addr,
			Handler: stub.New(opts...).Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "demo API listening on http://%s\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	demoCmd.Flags().Int("port", 8000, "port to listen on")
	demoCmd.Flags().Int("query-limit", 10, "daily query limit per client")
	demoCmd.Flags().String("verify-token", "", "require this verification token on searches")
}
