package main

import (
	"os"

	cmd "github.com/mosaicnetworks/fuelnet/cmd/fuelnet/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewPumpCmd(),
		cmd.NewDistributorCmd(),
		cmd.NewAdminCmd(),
		cmd.NewNetworkCmd())

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
