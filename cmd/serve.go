package cmd

import (
	"github.com/emrgen/canvas/internal/config"
	"github.com/emrgen/canvas/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the canvas server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			if cmd.Flag("port").Changed {
				cfg.HTTPPort = port
			}
			config.SetupLogger(cfg)

			if err := server.Start(cfg); err != nil {
				logrus.Fatalf("error starting server: %v", err)
			}
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "http port, overrides HTTP_PORT")

	return command
}
