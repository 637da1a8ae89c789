package constructs

import (
	"time"

	"github.com/loomworks/loom/pkg/spec"
)

func isSet(b *bool) bool {
	return b != nil && *b
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func durationOr(v *time.Duration, def time.Duration) time.Duration {
	if v != nil {
		return *v
	}
	return def
}

func stringOr(v *string, def string) string {
	if v != nil {
		return *v
	}
	return def
}

// statementProps converts caller statements to resolved property values.
func statementProps(statements []spec.Statement) []map[string]any {
	out := make([]map[string]any, 0, len(statements))
	for _, st := range statements {
		m := map[string]any{
			"effect":  st.Effect,
			"actions": st.Actions,
		}
		if len(st.Resources) > 0 {
			m["resources"] = st.Resources
		}
		if len(st.Principals) > 0 {
			m["principals"] = st.Principals
		}
		out = append(out, m)
	}
	return out
}
