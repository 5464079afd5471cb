package cmd

import (
	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/log"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var printConfig bool

	c := &cobra.Command{
		Use:   "validate",
		Args:  cobra.NoArgs,
		Short: "Validates the configuration without starting the server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return validateConfiguration(printConfig)
		},
	}

	c.Flags().BoolVarP(&printConfig, "print", "p", false, "dry run, dump the values read from the config file")

	return c
}

func validateConfiguration(printConfig bool) error {
	log.Log().Infof("Validating configuration file: %s", configPath)

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}

	if printConfig {
		log.Log().Infof("upstream:       %s", cfg.Upstream)
		log.Log().Infof("db driver:      %s", cfg.Dynamic.Database.Driver)
		log.Log().Infof("lookup query:   %s", cfg.Dynamic.LookupQuery)
		log.Log().Infof("ttl:            %d", cfg.Dynamic.TTL)
		log.Log().Infof("domains:        %v", cfg.Dynamic.Domains)
		log.Log().Infof("port:           %d", cfg.Port)
	}

	log.Log().Info("Configuration is valid")

	return nil
}
