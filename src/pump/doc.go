// Package pump implements the leaf node of the network.
//
// A Pump keeps one Session to its distributor. It announces itself with a
// PUMP_STATUS after every successful connect, sells fuel one refuel at a time,
// and registers each completed refuel as a transaction. The distributor may
// query its counters and push new prices; a price push that arrives during a
// refuel is refused with an ERROR envelope.
package pump
