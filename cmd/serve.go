package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/adreview/internal/api"
	"github.com/joescharf/adreview/internal/daemon"
	webui "github.com/joescharf/adreview/internal/ui"
)

const (
	shutdownGrace = 10 * time.Second
	sweepInterval = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review dashboard (API and web UI)",
	Long: `Run the review dashboard in the foreground. It listens on port 8080
unless --port or ADREVIEW_PORT says otherwise.

Use 'adreview serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dashboard in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background dashboard is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func serveProcess() *daemon.Process {
	return daemon.New(viper.GetString("state_dir"), "adreview-serve")
}

// newServeHandler mounts the JSON API under /api/ and the embedded UI
// everywhere else. Responses are gzipped when the client accepts it.
func newServeHandler(apiSrv *api.Server) (http.Handler, error) {
	uiHandler, err := webui.Handler()
	if err != nil {
		return nil, fmt.Errorf("initialize UI handler: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/", apiSrv.Router())
	mux.Handle("/", uiHandler)
	return gzhttp.GzipHandler(mux), nil
}

func serveRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	apiSrv := api.NewServer(s, analyzer, viper.GetDuration("sessions.ttl"))
	handler, err := newServeHandler(apiSrv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	go apiSrv.Sessions().Run(ctx, sweepInterval)

	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	ui.Info("Serving adreview at http://localhost%s (provider: %s)", addr, analyzer.ProviderName())
	slog.Info("server started", "addr", addr, "provider", analyzer.ProviderName())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func serveStartRun() error {
	proc := serveProcess()
	if pid, running := proc.Running(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("port"))}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}

	if dryRun {
		ui.DryRunMsg("Would start %s %v (log: %s)", exe, args, proc.LogPath)
		return nil
	}

	logFile, err := proc.OpenLog()
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	pid := child.Process.Pid
	if err := proc.WritePID(pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("Server started (pid %d) on port %d", pid, viper.GetInt("port"))
	ui.Info("Log: %s", proc.LogPath)
	return nil
}

func serveStopRun() error {
	proc := serveProcess()
	pid, _ := proc.Running()
	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", pid)
		return nil
	}
	if err := proc.Stop(sigTERM(), sigKILL(), shutdownGrace); err != nil {
		return err
	}
	ui.Success("Server stopped (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	proc := serveProcess()
	pid, running := proc.Running()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server running (pid %d)", pid)
	ui.Info("Log: %s", proc.LogPath)
	return nil
}
