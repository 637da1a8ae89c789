package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loomworks/loom/pkg/config"
	"github.com/loomworks/loom/pkg/constructs"
	"github.com/loomworks/loom/pkg/engine"
	"github.com/loomworks/loom/pkg/spec"
	"github.com/loomworks/loom/pkg/telemetry"
)

// loadDocument loads and assembles a stack document, failing on any parse
// or schema error.
func loadDocument(ctx context.Context, paths []string) (*config.StackDocument, error) {
	// The stack name is only known after loading; the span attribute is
	// filled in below.
	ctx, span := tracer.StartLoadSpan(ctx, "")
	defer span.End()

	loader := config.NewLoader()
	doc, err := loader.Load(ctx, paths)
	if err != nil {
		metrics.RecordDocumentLoaded(false)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(doc.Errors) > 0 {
		for _, pe := range doc.Errors {
			log.Error().Str("source", pe.File).Msg(pe.Error())
		}
		err := fmt.Errorf("document has %d error(s)", len(doc.Errors))
		metrics.RecordDocumentLoaded(false)
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(telemetry.AttrStack.String(doc.Stack.Name))
	metrics.RecordDocumentLoaded(true)
	telemetry.RecordSuccess(span)
	return doc, nil
}

// resolveEnvironment picks the environment: the --environment flag wins,
// then the document's stack block, then detection from the stack name.
func resolveEnvironment(doc *config.StackDocument) (engine.Environment, error) {
	name := environment
	if name == "" {
		name = doc.Stack.Environment
	}
	switch strings.ToLower(name) {
	case "":
		return engine.DetectEnvironment(doc.Stack.Name), nil
	case "prod", "production":
		return engine.Environment{IsProd: true}, nil
	case "nonprod", "dev", "development":
		return engine.Environment{IsProd: false}, nil
	default:
		return engine.Environment{}, fmt.Errorf("unknown environment %q (want prod or nonprod)", name)
	}
}

// synthResult pairs a spec with the graph it produced.
type synthResult struct {
	Spec   spec.Spec
	Result *constructs.Result
}

// synthesize builds every spec in the document. Validation failures across
// all specs are collected and reported together.
func synthesize(ctx context.Context, doc *config.StackDocument, env engine.Environment) ([]synthResult, error) {
	specs, err := doc.Specs()
	if err != nil {
		return nil, err
	}

	var results []synthResult
	var invalid int
	for _, s := range specs {
		family := string(s.Family())
		_, span := tracer.StartSynthSpan(ctx, s.ID(), family)
		timer := telemetry.NewTimer()

		res, violations, err := constructs.Build(s, constructs.BuildOptions{
			Environment: env,
			ExtraTags:   doc.Stack.Tags,
		})
		metrics.RecordSpecValidated(family, len(violations) == 0, len(violations))
		if len(violations) > 0 {
			invalid++
			for _, v := range violations {
				log.Error().
					Str("logical_id", s.ID()).
					Str("family", family).
					Msgf("%s", v.Error())
			}
			metrics.RecordSynthesis(family, false, timer.Duration(), 0)
			telemetry.RecordError(span, fmt.Errorf("%d validation violation(s)", len(violations)))
			span.End()
			continue
		}
		if err != nil {
			metrics.RecordSynthesis(family, false, timer.Duration(), 0)
			telemetry.RecordError(span, err)
			span.End()
			return nil, fmt.Errorf("synthesize %s: %w", s.ID(), err)
		}

		metrics.RecordSynthesis(family, true, timer.Duration(), len(res.Graph.Nodes))
		span.SetAttributes(telemetry.AttrNodeCount.Int(len(res.Graph.Nodes)))
		telemetry.RecordSuccess(span)
		span.End()
		results = append(results, synthResult{Spec: s, Result: res})
	}

	if invalid > 0 {
		return nil, fmt.Errorf("%d spec(s) failed validation", invalid)
	}
	return results, nil
}

// specHash derives a stable content hash over the document's declarations.
func specHash(doc *config.StackDocument) string {
	h := sha256.New()
	for _, entry := range doc.Resources {
		h.Write([]byte(entry.LogicalID))
		h.Write([]byte{0})
		h.Write([]byte(entry.Family))
		h.Write([]byte{0})
		h.Write(entry.Body)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
