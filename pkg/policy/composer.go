package policy

import (
	"fmt"

	"github.com/loomworks/loom/pkg/spec"
)

// Grant is one principal-scoped statement on a shared resource. Actions are
// always drawn from the least-privilege allow-list for the principal; the
// composer has no wildcard path by construction.
type Grant struct {
	// Sid identifies the statement within the composed policy.
	Sid string `json:"sid"`

	// Principal is the service principal receiving the grant.
	Principal string `json:"principal"`

	// Actions are the exact actions granted.
	Actions []string `json:"actions"`

	// Resource is the shared resource the grant applies to.
	Resource string `json:"resource"`

	// Conditions scope the grant, typically a kms:ViaService condition
	// restricting use to calls made through the granted service.
	Conditions map[string]string `json:"conditions,omitempty"`
}

// grantTemplate is the closed per-capability mapping from which all grants
// are minted. Adding a grantable principal means adding an entry here and a
// ServiceCapability constant: a compile-time-checked change.
type grantTemplate struct {
	principal  string
	viaService string
	actions    []string
}

var grantTemplates = map[spec.ServiceCapability]grantTemplate{
	spec.CapabilityQueue: {
		principal:  "sqs.amazonaws.com",
		viaService: "sqs.%s.amazonaws.com",
		actions:    []string{"kms:Decrypt", "kms:GenerateDataKey"},
	},
	spec.CapabilityNotification: {
		principal:  "sns.amazonaws.com",
		viaService: "sns.%s.amazonaws.com",
		actions:    []string{"kms:Decrypt", "kms:GenerateDataKey"},
	},
	spec.CapabilityCompute: {
		principal:  "lambda.amazonaws.com",
		viaService: "lambda.%s.amazonaws.com",
		actions:    []string{"kms:Decrypt"},
	},
	spec.CapabilityStorage: {
		principal:  "s3.amazonaws.com",
		viaService: "s3.%s.amazonaws.com",
		actions:    []string{"kms:Decrypt", "kms:GenerateDataKey"},
	},
}

// regionToken is the late-bound region placeholder in ViaService conditions,
// resolved by the synthesis backend.
const regionToken = "${region}"

// Compose builds the grant statements for a shared resource from the set of
// requested service capabilities. Principals compose additively: requesting
// two capabilities yields the union of their statements, never a merged or
// narrowed one. Unknown capabilities are rejected by the spec validator
// before construction; encountering one here is an engine defect.
//
// Output order follows input order, with duplicates dropped, so composition
// is deterministic.
func Compose(sharedResourceID string, capabilities []spec.ServiceCapability) ([]Grant, error) {
	grants := make([]Grant, 0, len(capabilities))
	seen := make(map[spec.ServiceCapability]bool, len(capabilities))

	for _, cap := range capabilities {
		if seen[cap] {
			continue
		}
		seen[cap] = true

		tmpl, ok := grantTemplates[cap]
		if !ok {
			return nil, fmt.Errorf("no grant template for capability %q", cap)
		}

		actions := make([]string, len(tmpl.actions))
		copy(actions, tmpl.actions)

		grants = append(grants, Grant{
			Sid:       fmt.Sprintf("Allow-%s", cap),
			Principal: tmpl.principal,
			Actions:   actions,
			Resource:  sharedResourceID,
			Conditions: map[string]string{
				"kms:ViaService": fmt.Sprintf(tmpl.viaService, regionToken),
			},
		})
	}

	return grants, nil
}
