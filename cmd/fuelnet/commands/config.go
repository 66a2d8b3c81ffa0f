package commands

import (
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Only one subcommand runs per process, so each keeps its configuration in a
// package variable, like the viper instance they share.
var (
	_pumpConfig        = config.NewDefaultPumpConfig()
	_distributorConfig = config.NewDefaultDistributorConfig()
	_adminConfig       = config.NewDefaultAdminConfig()
	_networkConfig     = NewDefaultNetworkConfig()
)

// AddCommonFlags adds the flags every node command shares.
func AddCommonFlags(cmd *cobra.Command, c *config.Config) {
	cmd.Flags().String("datadir", c.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", c.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", "", "Also write logs to this file")
	cmd.Flags().String("moniker", c.Moniker, "Node id")
	cmd.Flags().Bool("no-service", c.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", c.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().DurationP("timeout", "t", c.DialTimeout, "Dial timeout")
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command, target interface{}, c *config.Config) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(target); err != nil {
		return err
	}

	// look for config file in [datadir]/fuelnet.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile) // name of config file (without extension)
	viper.AddConfigPath(c.DataDir)                // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		c.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		c.Logger().Debugf("No config file found in: %s", c.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(target); err != nil {
		return err
	}

	c.SetLogger(newLogger(c.LogLevel, viper.GetString("log-file")))
	return nil
}
