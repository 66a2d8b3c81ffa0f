// Package fuel holds the data shared by every tier of the network: the closed
// set of fuel types, price tables, and the immutable Transaction produced by a
// pump at the end of a refuel.
//
// Transactions are persisted by distributors as one semicolon-joined record
// per line:
//
//	id;clientId;distributorId;fuelType;liters;pricePerLiter;total;createdAt
//
// createdAt is RFC 3339 with nanoseconds. Floats are written with the
// shortest representation that parses back to the same value, so a record
// round-trips exactly. The stored total is never recomputed on read.
package fuel
