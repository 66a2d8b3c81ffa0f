// Package service exposes a node's status over HTTP.
//
// Every node answers GET /stats with its GetStats map as JSON. The admin also
// serves its consolidated report on /report, and distributors serve their
// ledger stats and integrity check on /ledger.
package service
