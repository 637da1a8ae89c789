package constructs

import (
	"strings"
	"time"

	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/routing"
	"github.com/loomworks/loom/pkg/spec"
)

// defaultRecordTTL applies when the caller sets no TTL.
const defaultRecordTTL = 5 * time.Minute

// wireRecord builds the record graph. All routing modes except failover fit
// the high-level record form; failover materializes a low-level record set
// instead, carrying the same resolution fields plus the failover role and
// set identifier. The resolution fields come from a pure helper rather than
// a throwaway high-level node, so nothing is constructed only to be
// discarded.
func wireRecord(s spec.RecordSpec, env engine.Environment) (*Result, error) {
	graph := engine.NewGraph(spec.FamilyRecord)
	removal := engine.ResolveRemovalPolicy(s.RemovalPolicy, env)

	policy := routing.Select(s)

	if failover, ok := policy.(routing.Failover); ok {
		node := engine.NewNode(engine.KindRecordSet, s.LogicalID)
		node.RemovalPolicy = removal
		for k, v := range resolutionProps(s) {
			node.Set(k, v)
		}
		node.Set("failover_role", string(failover.Role))
		node.Set("set_identifier", failover.SetIdentifier)
		graph.Add(node)
		graph.DeclareOutput(s.LogicalID+".fqdn", recordFQDN(s), "Fully qualified domain name of the record")
		return &Result{Graph: graph}, nil
	}

	node := engine.NewNode(engine.KindRecord, s.LogicalID)
	node.RemovalPolicy = removal
	for k, v := range resolutionProps(s) {
		node.Set(k, v)
	}

	switch p := policy.(type) {
	case routing.Simple:
		// No routing props on the simple form.
	case routing.Weighted:
		node.Set("weight", p.Weight)
		node.Set("set_identifier", p.SetIdentifier)
	case routing.Geolocation:
		location := map[string]any{}
		if p.SubdivisionCode != "" {
			location["country_code"] = p.CountryCode
			location["subdivision_code"] = p.SubdivisionCode
		} else if p.CountryCode != "" {
			location["country_code"] = p.CountryCode
		} else {
			location["continent_code"] = p.ContinentCode
		}
		node.Set("geolocation", location)
		node.Set("set_identifier", p.SetIdentifier)
	case routing.Latency:
		node.Set("region", p.Region)
		node.Set("set_identifier", p.SetIdentifier)
	default:
		return nil, engine.NewInternalError("unhandled routing policy variant", nil).
			WithCode(engine.ErrCodeInternal).WithNode(s.LogicalID)
	}

	graph.Add(node)
	graph.DeclareOutput(s.LogicalID+".fqdn", recordFQDN(s), "Fully qualified domain name of the record")

	return &Result{Graph: graph}, nil
}

// resolutionProps derives the target-resolution fields shared by the
// high-level record form and the low-level record set.
func resolutionProps(s spec.RecordSpec) map[string]any {
	return map[string]any{
		"zone_name":        s.ZoneName,
		"record_name":      recordFQDN(s),
		"record_type":      s.RecordType,
		"resource_records": []string{s.Target},
		"ttl_seconds":      int64(durationOr(s.TTL, defaultRecordTTL).Seconds()),
	}
}

// recordFQDN joins the record name onto the zone, tolerating names already
// qualified against the zone.
func recordFQDN(s spec.RecordSpec) string {
	name := strings.TrimSuffix(s.RecordName, ".")
	zone := strings.TrimSuffix(s.ZoneName, ".")
	if name == zone || strings.HasSuffix(name, "."+zone) {
		return name
	}
	return name + "." + zone
}
