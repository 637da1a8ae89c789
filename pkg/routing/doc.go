// Package routing selects and parameterizes the traffic-distribution
// strategy for record-like resources.
//
// Policy is a closed set of variants: Simple, Weighted, Failover,
// Geolocation, and Latency. Select maps a validated record spec onto exactly
// one variant by field presence; it assumes validation has already enforced
// the cross-field rules (a set identifier on every non-simple mode, weight
// within [0, 255], a country accompanying any subdivision) and therefore
// never returns an error.
//
// Failover is special: the high-level record form cannot express it, so the
// record construct reacts to a Failover policy by materializing a low-level
// record set carrying the role and set identifier directly.
package routing
