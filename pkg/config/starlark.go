package config

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// StarlarkEvaluator runs compute scripts. Scripts see the document variables
// as predeclared values and export new variables through their globals;
// print output is discarded and execution is bounded by a timeout.
type StarlarkEvaluator struct {
	timeout time.Duration
}

// StarlarkResult carries the globals a compute script exported.
type StarlarkResult struct {
	// Output maps exported global names to their values. Names starting
	// with an underscore are treated as script-private and omitted.
	Output map[string]any `json:"output,omitempty"`

	// ExecutionTime is how long the script ran.
	ExecutionTime time.Duration `json:"execution_time"`
}

// NewStarlarkEvaluator creates an evaluator with the given timeout. A zero
// timeout defaults to 30 seconds.
func NewStarlarkEvaluator(timeout time.Duration) *StarlarkEvaluator {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StarlarkEvaluator{timeout: timeout}
}

// Evaluate runs a script with the given input values predeclared.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, script string, input map[string]any) (*StarlarkResult, error) {
	start := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	resultCh := make(chan *StarlarkResult, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := se.run(script, input)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- result
	}()

	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("compute script timed out after %v", se.timeout)
	case err := <-errCh:
		return nil, err
	case result := <-resultCh:
		result.ExecutionTime = time.Since(start)
		return result, nil
	}
}

func (se *StarlarkEvaluator) run(script string, input map[string]any) (*StarlarkResult, error) {
	thread := &starlark.Thread{
		Name:  "loom-compute",
		Print: func(*starlark.Thread, string) {},
	}

	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	for key, val := range input {
		sv, err := toStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("convert input %s: %w", key, err)
		}
		predeclared[key] = sv
	}

	globals, err := starlark.ExecFile(thread, "compute.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("compute script failed: %w", err)
	}

	output := make(map[string]any)
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		gv, err := fromStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("convert output %s: %w", name, err)
		}
		output[name] = gv
	}

	return &StarlarkResult{Output: output}, nil
}

func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		items := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = gv
		}
		return items, nil
	case starlark.Tuple:
		items := make([]any, len(val))
		for i, item := range val {
			gv, err := fromStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = gv
		}
		return items, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be a string")
			}
			gv, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = gv
		}
		return out, nil
	case *starlarkstruct.Struct:
		out := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			gv, err := fromStarlark(attr)
			if err != nil {
				return nil, err
			}
			out[name] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type %s", v.Type())
	}
}
