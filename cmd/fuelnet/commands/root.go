package commands

import (
	"github.com/spf13/cobra"
)

//RootCmd is the root command for fuelnet
var RootCmd = &cobra.Command{
	Use:              "fuelnet",
	Short:            "fuel distribution network nodes",
	TraverseChildren: true,
}
