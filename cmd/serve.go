package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/api"
	"github.com/streed/meetnotes/internal/logger"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start an HTTP API server that exposes the note store over REST.

Besides the /api/v1 endpoints the server answers POST /receive-data with
{"content": ...}, returning the content and its embedding. Another meetnotes
instance configured with the remote embedding provider uses that endpoint.

The API is documented at http://host:port/api/v1/docs when the server is running.

Examples:
  meetnotes serve                            # Start on 127.0.0.1:5000
  meetnotes serve --host 0.0.0.0 --port 3000 # Start on all interfaces, port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind the server to")
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "Port to bind the server to")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Initializing HTTP API server...")

	svc, err := getServices()
	if err != nil {
		return err
	}
	apiServer := api.NewAPIServer(appConfig, svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start(serveHost, servePort)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nmeetnotes HTTP API Server\n")
	fmt.Fprintf(out, "Server URL:   http://%s:%d\n", serveHost, servePort)
	fmt.Fprintf(out, "API Docs:     http://%s:%d/api/v1/docs\n", serveHost, servePort)
	fmt.Fprintf(out, "Health:       http://%s:%d/api/v1/health\n", serveHost, servePort)
	fmt.Fprintf(out, "Receive data: http://%s:%d/receive-data\n", serveHost, servePort)
	fmt.Fprintf(out, "Embedding:    %s\n", svc.Notes.EmbedderName())
	fmt.Fprintf(out, "\nPress Ctrl+C to stop the server\n\n")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
		if err := apiServer.Stop(); err != nil {
			logger.Error("Error during server shutdown: %v", err)
			return err
		}
		logger.Info("Server stopped successfully")
		return nil
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error: %v", err)
			return err
		}
		return nil
	}
}
