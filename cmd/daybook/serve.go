package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/logging"
	"github.com/daybook-sh/daybook/internal/realtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the realtime change-feed hub",
	Long: `Run the WebSocket hub that fans journal changes out to devices.

Each device subscribes with its user id (ws://host:port/ws?user_id=...)
and publishes its own remote writes on the same connection; the hub
rebroadcasts every event to all of that user's subscribers. Run one hub
next to the remote database and point realtime_url at it.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = a.cfg.RealtimePort
		}

		server := realtime.NewServer(&realtime.ServerConfig{
			Port:   port,
			Logger: logging.New("[feed] ", a.cfg.LogFile),
		})
		if err := server.Start(); err != nil {
			fail("failed to start change feed: %v", err)
		}

		fmt.Printf("Change feed listening on ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down change feed...")
		if err := server.Stop(); err != nil {
			fail("shutdown error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}
