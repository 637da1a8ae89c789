package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/loomworks/loom/pkg/spec"
)

// Loader reads stack documents from CUE and YAML sources, checks the
// declarations against the family schemas, and runs the optional compute
// script. YAML sources are encoded into CUE and unified with the rest, so a
// stack may mix both formats freely.
type Loader struct {
	ctx      *cue.Context
	registry *SchemaRegistry
	compute  *StarlarkEvaluator
}

// NewLoader creates a loader with the built-in family schemas.
func NewLoader() *Loader {
	return &Loader{
		ctx:      cuecontext.New(),
		registry: NewSchemaRegistry(),
		compute:  NewStarlarkEvaluator(30 * time.Second),
	}
}

// Registry returns the schema registry, so callers can register additional
// schemas before loading.
func (l *Loader) Registry() *SchemaRegistry { return l.registry }

// Load assembles a stack document from the given files and directories.
// Parse and schema errors are collected on the document rather than
// returned; only I/O failures and bad arguments produce an error.
func (l *Loader) Load(ctx context.Context, sources []string) (*StackDocument, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var unified cue.Value
	var files []string
	var parseErrors []ParseError

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("stat source %s: %w", source, err)
		}

		paths := []string{source}
		if info.IsDir() {
			paths, err = documentFiles(source)
			if err != nil {
				return nil, err
			}
			if len(paths) == 0 {
				parseErrors = append(parseErrors, ParseError{File: source, Message: "no document files found"})
				continue
			}
		}

		for _, path := range paths {
			val, errs := l.loadFile(path)
			parseErrors = append(parseErrors, errs...)
			if val.Exists() {
				if unified.Exists() {
					unified = unified.Unify(val)
				} else {
					unified = val
				}
			}
			files = append(files, path)
		}
	}

	doc := &StackDocument{SourceFiles: files, Errors: parseErrors}
	if len(parseErrors) > 0 {
		return doc, nil
	}

	if err := unified.Err(); err != nil {
		doc.Errors = append(doc.Errors, convertCUEErrors(err)...)
		return doc, nil
	}

	l.extractDocument(ctx, unified, doc)
	return doc, nil
}

// LoadInline parses inline CUE content, mainly for tests and tooling.
func (l *Loader) LoadInline(ctx context.Context, content string) (*StackDocument, error) {
	val := l.ctx.CompileString(content)
	doc := &StackDocument{SourceFiles: []string{"inline"}}
	if err := val.Err(); err != nil {
		doc.Errors = convertCUEErrors(err)
		return doc, nil
	}
	l.extractDocument(ctx, val, doc)
	return doc, nil
}

// loadFile compiles one source file into a CUE value. YAML files are decoded
// and re-encoded as CUE.
func (l *Loader) loadFile(path string) (cue.Value, []ParseError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ParseError{{File: path, Message: fmt.Sprintf("read file: %v", err)}}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var data map[string]any
		if err := yaml.Unmarshal(content, &data); err != nil {
			return cue.Value{}, []ParseError{{File: path, Message: fmt.Sprintf("parse yaml: %v", err)}}
		}
		val := l.ctx.Encode(data)
		if err := val.Err(); err != nil {
			return cue.Value{}, convertCUEErrors(err)
		}
		return val, nil
	default:
		val := l.ctx.CompileString(string(content), cue.Filename(path))
		if err := val.Err(); err != nil {
			return cue.Value{}, convertCUEErrors(err)
		}
		return val, nil
	}
}

// extractDocument pulls stack metadata, variables, the compute script, and
// the resource declarations out of the unified value, collecting errors on
// the document.
func (l *Loader) extractDocument(ctx context.Context, val cue.Value, doc *StackDocument) {
	if stackVal := val.LookupPath(cue.ParsePath("stack")); stackVal.Exists() {
		if err := stackVal.Decode(&doc.Stack); err != nil {
			doc.Errors = append(doc.Errors, ParseError{Path: "stack", Message: fmt.Sprintf("decode stack: %v", err)})
		}
	} else {
		doc.Errors = append(doc.Errors, ParseError{Path: "stack", Message: "document has no stack block"})
	}

	if varsVal := val.LookupPath(cue.ParsePath("variables")); varsVal.Exists() {
		if err := varsVal.Decode(&doc.Variables); err != nil {
			doc.Errors = append(doc.Errors, ParseError{Path: "variables", Message: fmt.Sprintf("decode variables: %v", err)})
		}
	}

	if computeVal := val.LookupPath(cue.ParsePath("compute")); computeVal.Exists() {
		script, err := computeVal.String()
		if err != nil {
			doc.Errors = append(doc.Errors, ParseError{Path: "compute", Message: "compute must be a string"})
		} else if err := l.runCompute(ctx, script, doc); err != nil {
			doc.Errors = append(doc.Errors, ParseError{Path: "compute", Message: err.Error()})
		}
	}

	resourcesVal := val.LookupPath(cue.ParsePath("resources"))
	if !resourcesVal.Exists() {
		return
	}
	if resourcesVal.Kind() != cue.StructKind {
		doc.Errors = append(doc.Errors, ParseError{Path: "resources", Message: "resources must be a struct keyed by logical ID"})
		return
	}

	iter, err := resourcesVal.Fields(cue.All())
	if err != nil {
		doc.Errors = append(doc.Errors, ParseError{Path: "resources", Message: fmt.Sprintf("iterate resources: %v", err)})
		return
	}
	for iter.Next() {
		id := strings.Trim(iter.Selector().String(), `"`)
		entry, err := l.extractEntry(id, iter.Value())
		if err != nil {
			doc.Errors = append(doc.Errors, ParseError{Path: "resources." + id, Message: err.Error()})
			continue
		}
		doc.Resources = append(doc.Resources, entry)
	}

	// Field iteration order is not contractual; sort for stable synthesis.
	sort.Slice(doc.Resources, func(i, j int) bool {
		return doc.Resources[i].LogicalID < doc.Resources[j].LogicalID
	})
}

// extractEntry decodes one declaration, checks it against its family schema,
// and normalizes duration strings so the spec types decode cleanly.
func (l *Loader) extractEntry(id string, val cue.Value) (ResourceEntry, error) {
	var declaration map[string]any
	if err := val.Decode(&declaration); err != nil {
		return ResourceEntry{}, fmt.Errorf("decode declaration: %w", err)
	}

	family, _ := declaration["family"].(string)
	if family == "" {
		return ResourceEntry{}, fmt.Errorf("declaration has no family")
	}
	if _, ok := l.registry.Schema(family); !ok {
		return ResourceEntry{}, fmt.Errorf("unknown family %q", family)
	}

	if err := l.registry.Check(family, declaration); err != nil {
		return ResourceEntry{}, fmt.Errorf("schema check: %w", err)
	}
	if err := normalizeDeclaration(declaration); err != nil {
		return ResourceEntry{}, err
	}

	body, err := json.Marshal(declaration)
	if err != nil {
		return ResourceEntry{}, fmt.Errorf("encode declaration: %w", err)
	}

	return ResourceEntry{LogicalID: id, Family: spec.Family(family), Body: body}, nil
}

// runCompute executes the compute script and merges its globals into the
// document variables. Script globals win over declared variables.
func (l *Loader) runCompute(ctx context.Context, script string, doc *StackDocument) error {
	input := map[string]any{
		"stack":     doc.Stack.Name,
		"variables": doc.Variables,
	}
	result, err := l.compute.Evaluate(ctx, script, input)
	if err != nil {
		return err
	}
	if doc.Variables == nil && len(result.Output) > 0 {
		doc.Variables = make(map[string]any, len(result.Output))
	}
	for k, v := range result.Output {
		doc.Variables[k] = v
	}
	return nil
}

// documentFiles walks a directory for CUE and YAML sources, sorted for
// deterministic unification order.
func documentFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// convertCUEErrors flattens a CUE error into located parse errors.
func convertCUEErrors(err error) []ParseError {
	var out []ParseError
	for _, e := range errors.Errors(err) {
		pe := ParseError{Message: errors.Details(e, nil)}
		if pos := errors.Positions(e); len(pos) > 0 {
			pe.File = pos[0].Filename()
			pe.Line = pos[0].Line()
			pe.Column = pos[0].Column()
		}
		out = append(out, pe)
	}
	return out
}
