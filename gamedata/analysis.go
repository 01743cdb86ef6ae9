package gamedata

import (
	"context"
	"runtime"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
)

// maxWalkDepth bounds recursion into nested entities.
const maxWalkDepth = 64

// Analysis is the data mined from restructured entities: dynamic value
// sets, complex enum values and scripted effect parameters. It implements
// resolver.Data.
type Analysis struct {
	Entities *Restructured

	valueSets    valueSets
	complexEnums map[string]interner.Set
	params       map[interner.Spur]interner.Set
}

var _ resolver.Data = (*Analysis)(nil)

// entityData answers type key questions only; the collectors use it while
// the rest of the analysis is being built.
type entityData struct{ *Restructured }

func (entityData) ComplexEnumValues(string) (interner.Set, bool) { return nil, false }
func (entityData) ValueSetValues(string) (interner.Set, bool)    { return nil, false }

// Analyze runs the value set, complex enum and parameter collectors in
// parallel.
func Analyze(ctx context.Context, s *schema.Analyzer, entities *Restructured, log *zap.Logger) (*Analysis, error) {
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	a := &Analysis{
		Entities:     entities,
		valueSets:    make(valueSets),
		complexEnums: make(map[string]interner.Set),
		params:       make(map[interner.Spur]interner.Set),
	}

	if s == nil {
		return a, nil
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sets, err := collectValueSets(ctx, s, entities)
		a.valueSets = sets

		return err
	})

	g.Go(func() error {
		for _, ce := range s.ComplexEnums() {
			if err := ctx.Err(); err != nil {
				return err
			}

			a.complexEnums[ce.Name] = collectComplexEnum(entities.Index, ce)
		}

		return nil
	})

	g.Go(func() error {
		game := entities.Index.Game

		for _, ns := range game.ScriptedEffects {
			ents, ok := entities.Namespace(ns)
			if !ok {
				continue
			}

			for _, e := range ents.List {
				a.params[interner.Intern(e.Name)] = collectParameters(e.Entity)
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("analysed game data",
		zap.Int("value_sets", len(a.valueSets)),
		zap.Int("complex_enums", len(a.complexEnums)),
		zap.Int("scripted_effects", len(a.params)),
		zap.Duration("took", time.Since(start)),
	)

	return a, nil
}

// collectValueSets walks every typed entity. Namespaces run in parallel,
// and within a namespace the entities are split across workers that each
// own a resolver. Partial results merge in namespace and entity order, so
// the spelling kept for a value does not depend on scheduling.
func collectValueSets(ctx context.Context, s *schema.Analyzer, entities *Restructured) (valueSets, error) {
	workers := runtime.GOMAXPROCS(0)
	names := entities.Index.Namespaces()
	parts := make([]valueSets, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		ents, ok := entities.Namespace(name)
		if !ok {
			continue
		}

		g.Go(func() error {
			sets, err := collectNamespaceValueSets(ctx, s, entities, ents, workers)
			parts[i] = sets

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(valueSets)
	for _, part := range parts {
		out.merge(part)
	}

	return out, nil
}

func collectNamespaceValueSets(
	ctx context.Context, s *schema.Analyzer, entities *Restructured, ents *Entities, workers int,
) (valueSets, error) {
	rootScope := entities.Index.Game.RootScope(ents.Namespace)
	chunks := slices.Collect(slices.Chunk(ents.List, max((len(ents.List)+workers-1)/workers, 1)))
	parts := make([]valueSets, len(chunks))

	g, ctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		g.Go(func() error {
			c := &valueSetCollector{r: resolver.New(s, entityData{entities}), out: make(valueSets)}

			for _, e := range chunk {
				if err := ctx.Err(); err != nil {
					return err
				}

				if e.Type == nil {
					continue
				}

				st, err := c.r.RootIn(e.Type, e.Key, e.Entity, rootScope)
				if err != nil {
					continue
				}

				c.entity(st, e.Entity, 0)
			}

			parts[i] = c.out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(valueSets)
	for _, part := range parts {
		out.merge(part)
	}

	return out, nil
}

// TypeKeys returns the entity names of a type.
func (a *Analysis) TypeKeys(typeName string) (interner.Set, bool) {
	return a.Entities.TypeKeys(typeName)
}

// ComplexEnumValues returns the mined values of a complex enum.
func (a *Analysis) ComplexEnumValues(name string) (interner.Set, bool) {
	for k, set := range a.complexEnums {
		if interner.Default().Equal(k, name) {
			return set, true
		}
	}

	return nil, false
}

// ValueSetValues returns the values assigned to a value set. Value sets
// nobody assigns to are reported as unknown.
func (a *Analysis) ValueSetValues(name string) (interner.Set, bool) {
	for k, set := range a.valueSets {
		if interner.Default().Equal(k, name) {
			return set, true
		}
	}

	return nil, false
}

// ValueSets returns the names of the collected value sets, sorted.
func (a *Analysis) ValueSets() []string {
	out := make([]string, 0, len(a.valueSets))
	for k := range a.valueSets {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// Parameters returns the parameter names of a scripted effect or trigger,
// sorted.
func (a *Analysis) Parameters(effect string) []string {
	k, ok := interner.Get(effect)
	if !ok {
		return nil
	}

	set, ok := a.params[k]
	if !ok {
		return nil
	}

	return set.Strings(interner.Default())
}
