package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/evt"
	"github.com/sqldns/sqldns/log"
	"github.com/sqldns/sqldns/server"
	"github.com/sqldns/sqldns/util"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "start the DNS server (default command)",
		Run:   startServer,
	}
}

// applyFlagOverrides lets command line flags take precedence over file values
func applyFlagOverrides(cfg *config.Config) {
	if rootCmd.PersistentFlags().Changed("port") {
		cfg.Port = listenPort
	}
}

func startServer(_ *cobra.Command, _ []string) {
	cfg, err := config.NewConfig(configPath)
	util.FatalOnError("can't load config: ", err)

	applyFlagOverrides(&cfg)

	log.ConfigureLogger(cfg.Log)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	srv, err := server.NewServer(&cfg)
	util.FatalOnError("can't start server: ", err)

	errCh := make(chan error)

	srv.Start(errCh)

	evt.Bus().Publish(evt.ApplicationStarted, version, buildTime)

	select {
	case <-signals:
		log.Log().Info("Terminating...")
		util.LogOnError("can't stop server: ", srv.Stop())
	case err := <-errCh:
		log.Log().Fatal("server failed: ", err)
	}
}
