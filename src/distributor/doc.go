// Package distributor implements the middle tier of the network.
//
// A Distributor is a server for its pumps and a client of the admin. It
// applies its utility factor to every base price table received from the
// admin and pushes the result to all registered pumps. Transactions
// registered by pumps are written to the Ledger; those received while the
// admin is unreachable are also kept in a pending buffer and flushed with
// SYNC_TRANSACTIONS as soon as the admin session is up again.
package distributor
