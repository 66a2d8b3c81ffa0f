package commands

import (
	"fmt"

	"github.com/mosaicnetworks/fuelnet/src/distributor"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewDistributorCmd returns the command that starts a distributor node
func NewDistributorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "distributor",
		Short:   "Run a distributor node",
		PreRunE: loadDistributorConfig,
		RunE:    runDistributor,
	}
	AddDistributorFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runDistributor(cmd *cobra.Command, args []string) error {
	c := _distributorConfig
	logger := c.Logger()

	d, err := distributor.New(c)
	if err != nil {
		logger.WithError(err).Error("Cannot create distributor")
		return err
	}
	defer d.Close()

	// a listener that cannot bind is the only fatal startup error
	if err := d.StartServer(); err != nil {
		logger.WithError(err).Error("Cannot start pump server")
		return err
	}

	stop := startService(c.NoService, c.ServiceAddr, d, logger)
	defer stop()

	if !d.ConnectToAdmin(c.AdminAddr) {
		logger.Warn("Admin not reachable, running in local mode")
	}

	ctx, cancel := signalContext()
	defer cancel()

	runConsole(ctx, d.ID(), map[string]consoleCmd{
		"stats": {
			usage: "show ledger stats",
			run: func([]string) error {
				fmt.Println(d.Stats())
				return nil
			},
		},
		"verify": {
			usage: "compare primary and backup ledgers",
			run: func([]string) error {
				fmt.Printf("integrity: %v\n", d.VerifyIntegrity())
				return nil
			},
		},
		"prices": {
			usage: "show final prices",
			run: func([]string) error {
				fmt.Println(d.Prices())
				return nil
			},
		},
		"pumps": {
			usage: "query and list connected pumps",
			run: func([]string) error {
				d.QueryPumps()
				for _, s := range d.PumpStatuses() {
					fmt.Printf("%s fuel=%s busy=%v fills=%d liters=%.2f\n",
						s.ID, s.FuelType, s.Busy, s.TotalFills, s.TotalLiters)
				}
				return nil
			},
		},
		"connect": {
			usage: "retry the admin connection",
			run: func([]string) error {
				if !d.ConnectToAdmin(c.AdminAddr) {
					return fmt.Errorf("cannot reach %s", c.AdminAddr)
				}
				return nil
			},
		},
	})

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddDistributorFlags adds flags to the distributor command
func AddDistributorFlags(cmd *cobra.Command) {
	AddCommonFlags(cmd, &_distributorConfig.Config)

	cmd.Flags().StringP("listen", "l", _distributorConfig.BindAddr, "Listen IP:Port for pumps")
	cmd.Flags().StringP("advertise", "a", _distributorConfig.AdvertiseAddr, "Advertise IP:Port")
	cmd.Flags().String("admin", _distributorConfig.AdminAddr, "IP:Port of the admin node")
	cmd.Flags().Float64P("utility", "u", _distributorConfig.UtilityFactor, "Utility factor applied to base prices (> 1)")
	cmd.Flags().Duration("reconnect-interval", _distributorConfig.Reconnect.Interval, "Time between admin reconnect attempts")
	cmd.Flags().Int("reconnect-attempts", _distributorConfig.Reconnect.MaxAttempts, "Admin reconnect attempts before local mode")
}

func loadDistributorConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd, _distributorConfig, &_distributorConfig.Config); err != nil {
		return err
	}

	_distributorConfig.Logger().WithFields(logrus.Fields{
		"DataDir":           _distributorConfig.DataDir,
		"Moniker":           _distributorConfig.Moniker,
		"LogLevel":          _distributorConfig.LogLevel,
		"ServiceAddr":       _distributorConfig.ServiceAddr,
		"BindAddr":          _distributorConfig.BindAddr,
		"AdvertiseAddr":     _distributorConfig.AdvertiseAddr,
		"AdminAddr":         _distributorConfig.AdminAddr,
		"UtilityFactor":     _distributorConfig.UtilityFactor,
		"ReconnectInterval": _distributorConfig.Reconnect.Interval,
		"ReconnectAttempts": _distributorConfig.Reconnect.MaxAttempts,
	}).Debug("RUN")

	return nil
}
