package net

// Kind identifies the purpose of an Envelope. The set is closed and split by
// the direction the envelope travels.
type Kind uint8

const (
	// PriceUpdateBase carries the admin base price table to a distributor.
	PriceUpdateBase Kind = iota + 1
	// RequestReport asks a distributor for its ledger summary.
	RequestReport

	// Report answers RequestReport.
	Report
	// PriceConfirmation acknowledges PriceUpdateBase after pumps were updated.
	PriceConfirmation
	// SyncTransactions flushes transactions buffered while offline.
	SyncTransactions

	// QueryStatus asks a pump for its counters.
	QueryStatus
	// PriceUpdate carries the distributor's final price table to a pump.
	PriceUpdate

	// PumpStatus answers QueryStatus; also sent by a pump when it connects.
	PumpStatus
	// RegisterTransaction submits a completed refuel.
	RegisterTransaction

	// Ack ...
	Ack
	// Error ...
	Error
	// Ping ...
	Ping
	// Reconnect announces that a session was re-established.
	Reconnect
)

var kindNames = map[Kind]string{
	PriceUpdateBase:     "PRICE_UPDATE_BASE",
	RequestReport:       "REQUEST_REPORT",
	Report:              "REPORT",
	PriceConfirmation:   "PRICE_CONFIRMATION",
	SyncTransactions:    "SYNC_TRANSACTIONS",
	QueryStatus:         "QUERY_STATUS",
	PriceUpdate:         "PRICE_UPDATE",
	PumpStatus:          "PUMP_STATUS",
	RegisterTransaction: "REGISTER_TRANSACTION",
	Ack:                 "ACK",
	Error:               "ERROR",
	Ping:                "PING",
	Reconnect:           "RECONNECT",
}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String ...
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}
