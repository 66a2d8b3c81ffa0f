package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mosaicnetworks/fuelnet/src/admin"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewAdminCmd returns the command that starts the admin node
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "admin",
		Short:   "Run the admin node",
		PreRunE: loadAdminConfig,
		RunE:    runAdmin,
	}
	AddAdminFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runAdmin(cmd *cobra.Command, args []string) error {
	c := _adminConfig
	logger := c.Logger()

	a, err := admin.New(c)
	if err != nil {
		logger.WithError(err).Error("Cannot create admin")
		return err
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		logger.WithError(err).Error("Cannot start distributor server")
		return err
	}

	stop := startService(c.NoService, c.ServiceAddr, a, logger)
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	runConsole(ctx, a.ID(), map[string]consoleCmd{
		"prices": {
			usage: "[TYPE=PRICE,...]  show or update base prices",
			run: func(args []string) error {
				if len(args) == 0 {
					fmt.Println(a.BasePrices())
					return nil
				}
				prices, err := parsePriceList(strings.Join(args, ","))
				if err != nil {
					return err
				}
				fmt.Printf("sent to %d distributors\n", a.UpdateBasePrices(prices))
				return nil
			},
		},
		"request": {
			usage: "request reports from distributors",
			run: func([]string) error {
				fmt.Printf("requested from %d distributors\n", a.RequestReports())
				return nil
			},
		},
		"report": {
			usage: "print the consolidated report",
			run: func([]string) error {
				fmt.Print(a.GenerateConsolidatedReport())
				return nil
			},
		},
		"distributors": {
			usage: "list connected distributors",
			run: func([]string) error {
				confirmed := map[string]bool{}
				for _, id := range a.Confirmations() {
					confirmed[id] = true
				}
				for _, id := range a.Distributors() {
					fmt.Printf("%s confirmed=%v\n", id, confirmed[id])
				}
				return nil
			},
		},
	})

	return nil
}

// parsePriceList parses "GAS_93=1000,DIESEL=900". Fuel names accept their
// display form too.
func parsePriceList(s string) (fuel.Prices, error) {
	prices := fuel.Prices{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		kv := strings.SplitN(item, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected TYPE=PRICE, got %q", item)
		}
		t, err := fuel.ParseType(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, err
		}
		if !(v > 0) {
			return nil, fmt.Errorf("price must be positive, got %v", v)
		}
		prices[t] = v
	}
	return prices, nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddAdminFlags adds flags to the admin command
func AddAdminFlags(cmd *cobra.Command) {
	AddCommonFlags(cmd, &_adminConfig.Config)

	cmd.Flags().StringP("listen", "l", _adminConfig.BindAddr, "Listen IP:Port for distributors")
	cmd.Flags().StringP("advertise", "a", _adminConfig.AdvertiseAddr, "Advertise IP:Port")

	// Store
	cmd.Flags().Bool("store", _adminConfig.Store, "Use badgerDB instead of in-mem history")
	cmd.Flags().String("db", _adminConfig.DatabaseDir, "Database directory")
}

func loadAdminConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd, _adminConfig, &_adminConfig.Config); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_adminConfig.SetDataDir(_adminConfig.DataDir)

	logFields := logrus.Fields{
		"DataDir":     _adminConfig.DataDir,
		"Moniker":     _adminConfig.Moniker,
		"LogLevel":    _adminConfig.LogLevel,
		"ServiceAddr": _adminConfig.ServiceAddr,
		"BindAddr":    _adminConfig.BindAddr,
		"Store":       _adminConfig.Store,
	}

	if _adminConfig.Store {
		logFields["DatabaseDir"] = _adminConfig.DatabaseDir
	}

	_adminConfig.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
