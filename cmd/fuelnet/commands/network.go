package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/admin"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/distributor"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/pump"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// NetworkConfig configures a complete in-process network.
type NetworkConfig struct {
	DataDir       string        `mapstructure:"datadir"`
	LogLevel      string        `mapstructure:"log"`
	LogFile       string        `mapstructure:"log-file"`
	ServiceAddr   string        `mapstructure:"service-listen"`
	NoService     bool          `mapstructure:"no-service"`
	AdminAddr     string        `mapstructure:"admin"`
	BasePort      int           `mapstructure:"base-port"`
	Distributors  int           `mapstructure:"distributors"`
	Pumps         int           `mapstructure:"pumps"`
	Refuels       int           `mapstructure:"refuels"`
	Liters        float64       `mapstructure:"liters"`
	UtilityFactor float64       `mapstructure:"utility"`
	RefuelRate    time.Duration `mapstructure:"refuel-rate"`
	Store         bool          `mapstructure:"store"`
	Wait          bool          `mapstructure:"wait"`
}

// NewDefaultNetworkConfig ...
func NewDefaultNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		DataDir:       filepath.Join(config.DefaultDataDir(), "network"),
		LogLevel:      "info",
		ServiceAddr:   config.DefaultServiceAddr,
		AdminAddr:     config.DefaultAdminAddr,
		BasePort:      5000,
		Distributors:  2,
		Pumps:         2,
		Refuels:       3,
		Liters:        10,
		UtilityFactor: config.DefaultUtilityFactor,
		RefuelRate:    10 * time.Millisecond,
	}
}

//NewNetworkCmd returns the command that runs a whole network in-process
func NewNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "network",
		Short:   "Run an admin, its distributors and their pumps in one process",
		PreRunE: loadNetworkConfig,
		RunE:    runNetwork,
	}
	AddNetworkFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

type network struct {
	admin        *admin.Admin
	distributors []*distributor.Distributor
	pumps        []*pump.Pump
}

func (n *network) close() {
	for _, p := range n.pumps {
		p.Close()
	}
	for _, d := range n.distributors {
		d.Close()
	}
	if n.admin != nil {
		n.admin.Close()
	}
}

func runNetwork(cmd *cobra.Command, args []string) error {
	c := _networkConfig

	var printLock sync.Mutex
	logger := newSinkLogger(c.LogLevel, c.LogFile, func(line string) {
		printLock.Lock()
		defer printLock.Unlock()
		fmt.Println(line)
	})

	nw, err := buildNetwork(c, logger)
	defer nw.close()
	if err != nil {
		return err
	}

	stop := startService(c.NoService, c.ServiceAddr, nw.admin, logger.WithField("prefix", "fuelnet"))
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	// initial price push
	nw.admin.UpdateBasePrices(fuel.DefaultPrices())
	waitUntil(ctx, 2*time.Second, func() bool {
		return len(nw.admin.Confirmations()) == len(nw.distributors)
	})

	if err := runSales(ctx, c, nw.pumps); err != nil {
		return err
	}

	for _, d := range nw.distributors {
		d.VerifyIntegrity()
		fmt.Println(d.Stats())
	}

	nw.admin.RequestReports()
	waitUntil(ctx, 5*time.Second, func() bool {
		for _, d := range nw.distributors {
			r, ok := nw.admin.Report(d.ID())
			if !ok || r.Count != d.Ledger().Count() {
				return false
			}
		}
		return true
	})

	fmt.Print(nw.admin.GenerateConsolidatedReport())

	if c.Wait {
		<-ctx.Done()
	}
	return nil
}

func buildNetwork(c *NetworkConfig, logger *logrus.Logger) (*network, error) {
	nw := &network{}

	ac := config.NewDefaultAdminConfig()
	ac.Moniker = "admin"
	ac.LogLevel = c.LogLevel
	ac.BindAddr = c.AdminAddr
	ac.Store = c.Store
	ac.SetDataDir(c.DataDir)
	ac.SetLogger(logger)

	a, err := admin.New(ac)
	if err != nil {
		return nw, err
	}
	nw.admin = a
	if err := a.Start(); err != nil {
		return nw, err
	}

	for i := 0; i < c.Distributors; i++ {
		dc := config.NewDefaultDistributorConfig()
		dc.Moniker = "dist-" + strconv.Itoa(i+1)
		dc.LogLevel = c.LogLevel
		dc.DataDir = c.DataDir
		dc.BindAddr = "127.0.0.1:" + strconv.Itoa(c.BasePort+i)
		dc.AdminAddr = a.Addr()
		dc.UtilityFactor = c.UtilityFactor
		dc.SetLogger(logger)

		d, err := distributor.New(dc)
		if err != nil {
			return nw, err
		}
		nw.distributors = append(nw.distributors, d)
		if err := d.StartServer(); err != nil {
			return nw, err
		}
		d.ConnectToAdmin(dc.AdminAddr)

		for j := 0; j < c.Pumps; j++ {
			pc := config.NewDefaultPumpConfig()
			pc.Moniker = fmt.Sprintf("%s-pump-%d", dc.Moniker, j+1)
			pc.LogLevel = c.LogLevel
			pc.DataDir = c.DataDir
			pc.FuelType = fuel.Types[(i+j)%len(fuel.Types)].String()
			pc.RefuelRate = c.RefuelRate
			pc.SetLogger(logger)

			p, err := pump.New(pc)
			if err != nil {
				return nw, err
			}
			nw.pumps = append(nw.pumps, p)
			p.Connect(d.Addr())
		}
	}

	return nw, nil
}

// runSales makes every pump sell c.Refuels times concurrently. Refuel errors
// are logged by the pumps and do not stop the others.
func runSales(ctx context.Context, c *NetworkConfig, pumps []*pump.Pump) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pumps {
		p := p
		g.Go(func() error {
			for i := 0; i < c.Refuels; i++ {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				p.SubmitRefuel(c.Liters)
			}
			return nil
		})
	}
	return g.Wait()
}

func waitUntil(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
	return cond()
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddNetworkFlags adds flags to the network command
func AddNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _networkConfig.DataDir, "Directory for ledgers and history")
	cmd.Flags().String("log", _networkConfig.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _networkConfig.LogFile, "Also write logs to this file")
	cmd.Flags().StringP("service-listen", "s", _networkConfig.ServiceAddr, "Listen IP:Port for the admin HTTP service")
	cmd.Flags().Bool("no-service", _networkConfig.NoService, "Disable HTTP service")
	cmd.Flags().String("admin", _networkConfig.AdminAddr, "Listen IP:Port for the admin")
	cmd.Flags().Int("base-port", _networkConfig.BasePort, "First distributor port, on 127.0.0.1")
	cmd.Flags().IntP("distributors", "n", _networkConfig.Distributors, "Number of distributors")
	cmd.Flags().IntP("pumps", "p", _networkConfig.Pumps, "Pumps per distributor")
	cmd.Flags().Int("refuels", _networkConfig.Refuels, "Refuels per pump")
	cmd.Flags().Float64("liters", _networkConfig.Liters, "Liters per refuel")
	cmd.Flags().Float64P("utility", "u", _networkConfig.UtilityFactor, "Utility factor of every distributor")
	cmd.Flags().Duration("refuel-rate", _networkConfig.RefuelRate, "Simulated refuel time per liter")
	cmd.Flags().Bool("store", _networkConfig.Store, "Use badgerDB for the admin history")
	cmd.Flags().Bool("wait", _networkConfig.Wait, "Keep running after the report until interrupted")
}

func loadNetworkConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.Unmarshal(_networkConfig)
}
