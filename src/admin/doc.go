// Package admin implements the root node of the network.
//
// The Admin listens for distributors, owns the base price table and pushes
// it down with PRICE_UPDATE_BASE. It collects REPORT answers to
// REQUEST_REPORT and transactions flushed with SYNC_TRANSACTIONS into a
// history store, deduplicated by transaction id, and renders a consolidated
// sales report over the connected distributors.
package admin
