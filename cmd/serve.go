package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/vlist/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the list engine over HTTP and websocket",
	Long: `Start the demo server: REST range reads at /api/items, engine and
collection stats at /api/stats, and a websocket at /ws that streams
engine events and render frames while accepting scroll commands.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "bind host")
	serveCmd.Flags().IntP("port", "p", 0, "bind port")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, cleanup, err := buildStack(pixelOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(s.cfg.Server, s.coll, s.engine, s.bus, s.logger)

	return srv.Start(ctx)
}
