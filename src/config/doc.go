// Package config defines the configuration of fuelnet nodes.
//
// Config holds the options every role shares. PumpConfig, DistributorConfig
// and AdminConfig embed it and add the role-specific ones. The CLI fills
// them from flags and from an optional fuelnet.toml in the data directory:
//
//  fuelnet.toml // (optional) any flag of the subcommand, keyed by flag name.
//  <moniker>_primary.csv // distributor ledger, primary copy.
//  <moniker>_backup.csv // distributor ledger, backup copy.
//  badger_db/ // (optional) admin transaction history, with --store.
package config
