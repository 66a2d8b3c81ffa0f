package commands

import (
	"fmt"
	"strconv"

	"github.com/mosaicnetworks/fuelnet/src/pump"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewPumpCmd returns the command that starts a pump node
func NewPumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pump",
		Short:   "Run a pump node",
		PreRunE: loadPumpConfig,
		RunE:    runPump,
	}
	AddPumpFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runPump(cmd *cobra.Command, args []string) error {
	c := _pumpConfig
	logger := c.Logger()

	p, err := pump.New(c)
	if err != nil {
		logger.WithError(err).Error("Cannot create pump")
		return err
	}
	defer p.Close()

	stop := startService(c.NoService, c.ServiceAddr, p, logger)
	defer stop()

	if !p.Connect(c.DistributorAddr) {
		logger.Warn("Distributor not reachable yet, use connect to retry")
	}

	ctx, cancel := signalContext()
	defer cancel()

	runConsole(ctx, p.ID(), map[string]consoleCmd{
		"refuel": {
			usage: "<liters>  sell fuel",
			run: func(args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: refuel <liters>")
				}
				liters, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return p.SubmitRefuel(liters)
			},
		},
		"status": {
			usage: "show counters",
			run: func([]string) error {
				s := p.Status()
				fmt.Printf("%s (%s) distributor=%s price=%.2f busy=%v fills=%d liters=%.2f session=%s\n",
					s.ID, s.FuelType.DisplayName(), s.DistributorID, s.Price, s.Busy,
					s.TotalFills, s.TotalLiters, s.Session)
				return nil
			},
		},
		"prices": {
			usage: "show cached prices",
			run: func([]string) error {
				fmt.Println(p.Prices())
				return nil
			},
		},
		"connect": {
			usage: "retry the distributor connection",
			run: func([]string) error {
				if !p.Connect(c.DistributorAddr) {
					return fmt.Errorf("cannot reach %s", c.DistributorAddr)
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

//AddPumpFlags adds flags to the pump command
func AddPumpFlags(cmd *cobra.Command) {
	AddCommonFlags(cmd, &_pumpConfig.Config)

	cmd.Flags().StringP("distributor", "d", _pumpConfig.DistributorAddr, "IP:Port of the distributor")
	cmd.Flags().String("distributor-id", _pumpConfig.DistributorID, "Distributor id stamped on transactions (learned when empty)")
	cmd.Flags().StringP("fuel", "f", _pumpConfig.FuelType, "Fuel type sold by this pump")
	cmd.Flags().Duration("refuel-rate", _pumpConfig.RefuelRate, "Simulated refuel time per liter")
	cmd.Flags().Duration("reconnect-interval", _pumpConfig.Reconnect.Interval, "Time between reconnect attempts")
	cmd.Flags().Int("reconnect-attempts", _pumpConfig.Reconnect.MaxAttempts, "Reconnect attempts before giving up")
}

func loadPumpConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd, _pumpConfig, &_pumpConfig.Config); err != nil {
		return err
	}

	_pumpConfig.Logger().WithFields(logrus.Fields{
		"DataDir":           _pumpConfig.DataDir,
		"Moniker":           _pumpConfig.Moniker,
		"LogLevel":          _pumpConfig.LogLevel,
		"ServiceAddr":       _pumpConfig.ServiceAddr,
		"DistributorAddr":   _pumpConfig.DistributorAddr,
		"DistributorID":     _pumpConfig.DistributorID,
		"FuelType":          _pumpConfig.FuelType,
		"RefuelRate":        _pumpConfig.RefuelRate,
		"ReconnectInterval": _pumpConfig.Reconnect.Interval,
		"ReconnectAttempts": _pumpConfig.Reconnect.MaxAttempts,
	}).Debug("RUN")

	return nil
}
