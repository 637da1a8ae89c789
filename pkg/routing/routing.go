package routing

import (
	"github.com/loomworks/loom/pkg/spec"
)

// Mode names a routing strategy.
type Mode string

const (
	// ModeSimple routes all traffic to one target.
	ModeSimple Mode = "simple"

	// ModeWeighted splits traffic proportionally across records.
	ModeWeighted Mode = "weighted"

	// ModeFailover routes to a primary with a health-checked secondary.
	ModeFailover Mode = "failover"

	// ModeGeolocation routes by the caller's location.
	ModeGeolocation Mode = "geolocation"

	// ModeLatency routes to the lowest-latency region.
	ModeLatency Mode = "latency"
)

// Policy is the routing strategy attached to a record. It is a closed set
// of variants; every non-simple variant carries a non-empty set identifier.
type Policy interface {
	// Mode returns the variant's routing mode.
	Mode() Mode
}

// Simple is the default single-target strategy.
type Simple struct{}

// Mode implements Policy.
func (Simple) Mode() Mode { return ModeSimple }

// Weighted splits traffic by relative weight in [0, 255].
type Weighted struct {
	// Weight is the record's share of traffic.
	Weight int

	// SetIdentifier distinguishes records sharing a name.
	SetIdentifier string
}

// Mode implements Policy.
func (Weighted) Mode() Mode { return ModeWeighted }

// Failover assigns the record a role in a primary/secondary pair. Failover
// cannot be expressed in the high-level record form, so selecting it makes
// the record construct materialize a low-level record set instead.
type Failover struct {
	// Role is the record's failover role.
	Role spec.FailoverRole

	// SetIdentifier distinguishes records sharing a name.
	SetIdentifier string
}

// Mode implements Policy.
func (Failover) Mode() Mode { return ModeFailover }

// Geolocation routes by caller location at one of three granularities.
// Exactly one granularity is populated: subdivision+country when a
// subdivision is requested, country alone otherwise, continent alone last.
type Geolocation struct {
	// ContinentCode is set only for continent-granularity routing.
	ContinentCode string

	// CountryCode is set for country and subdivision granularity.
	CountryCode string

	// SubdivisionCode refines CountryCode when present.
	SubdivisionCode string

	// SetIdentifier distinguishes records sharing a name.
	SetIdentifier string
}

// Mode implements Policy.
func (Geolocation) Mode() Mode { return ModeGeolocation }

// Latency routes toward the region with the lowest measured latency.
type Latency struct {
	// Region is the target region.
	Region string

	// SetIdentifier distinguishes records sharing a name.
	SetIdentifier string
}

// Mode implements Policy.
func (Latency) Mode() Mode { return ModeLatency }

// Select chooses and parameterizes the routing strategy for a record spec.
// It is only reachable after validation passes: malformed combinations are
// caught upstream, so Select never fails.
//
// Exactly one routing dimension is honored per invocation, chosen by field
// presence in a fixed order: weighted, failover, geolocation, latency. The
// geolocation tie-break prefers subdivision+country over country alone,
// which in turn beats continent alone.
func Select(s spec.RecordSpec) Policy {
	setID := ""
	if s.SetIdentifier != nil {
		setID = *s.SetIdentifier
	}

	switch {
	case s.Weight != nil:
		return Weighted{Weight: *s.Weight, SetIdentifier: setID}

	case s.Failover != nil:
		return Failover{Role: *s.Failover, SetIdentifier: setID}

	case s.SubdivisionCode != nil:
		// Validation guarantees a country accompanies a subdivision.
		return Geolocation{
			CountryCode:     deref(s.CountryCode),
			SubdivisionCode: *s.SubdivisionCode,
			SetIdentifier:   setID,
		}

	case s.CountryCode != nil:
		return Geolocation{CountryCode: *s.CountryCode, SetIdentifier: setID}

	case s.ContinentCode != nil:
		return Geolocation{ContinentCode: *s.ContinentCode, SetIdentifier: setID}

	case s.Region != nil:
		return Latency{Region: *s.Region, SetIdentifier: setID}

	default:
		return Simple{}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
