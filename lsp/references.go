package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/gamedata"
)

// References handles textDocument/references requests.
// Finds every use of the scripted variable under the cursor in the files
// that can see it: the document's namespace, or every file for a global
// variable. Open documents are searched as edited; the rest as indexed.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logger.Debug("References",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.Bool("includeDeclaration", params.Context.IncludeDeclaration))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	name, ok := variableAtPosition(doc, params.Position)
	if !ok {
		return nil, nil
	}

	return s.variableReferences(doc, name, params.Context.IncludeDeclaration), nil
}

// variableReferences collects the occurrences of name visible from doc.
func (s *Server) variableReferences(doc *Document, name string, includeDecl bool) []protocol.Location {
	var locations []protocol.Location

	add := func(uri protocol.DocumentURI, occs []analysis.VariableOccurrence, toRange func(analysis.VariableOccurrence) protocol.Range) {
		for _, occ := range occs {
			if occ.Definition && !includeDecl {
				continue
			}

			locations = append(locations, protocol.Location{URI: uri, Range: toRange(occ)})
		}
	}

	f := doc.Analysis
	add(doc.URI, analysis.VariableOccurrences(f.Module, name), func(o analysis.VariableOccurrence) protocol.Range {
		return spanToRange(f, o.Span)
	})

	ns := f.Model.Namespace
	snap := s.snapshot()
	global := snap != nil && s.isGlobalVariable(snap, ns, name, f)

	visible := func(namespace string) bool { return global || namespace == ns }

	open := make(map[protocol.DocumentURI]bool)

	for _, other := range s.openDocuments() {
		open[other.URI] = true

		if other.URI == doc.URI || other.Analysis == nil || other.Analysis.Model == nil {
			continue
		}

		if !visible(other.Analysis.Model.Namespace) {
			continue
		}

		of := other.Analysis
		add(other.URI, analysis.VariableOccurrences(of.Module, name), func(o analysis.VariableOccurrence) protocol.Range {
			return spanToRange(of, o.Span)
		})
	}

	if snap == nil {
		return locations
	}

	for _, m := range snap.Index.Modules() {
		if !visible(m.Namespace) {
			continue
		}

		abs, ok := snap.Index.File(m.Path)
		if !ok {
			continue
		}

		uri := PathToURI(abs)
		if open[uri] || uri == doc.URI {
			continue
		}

		add(uri, analysis.VariableOccurrences(m.AST, name), func(o analysis.VariableOccurrence) protocol.Range {
			return lexerRange(o.Span)
		})
	}

	return locations
}

// isGlobalVariable reports whether name, seen from a file of namespace,
// resolves to a global scripted variable.
func (s *Server) isGlobalVariable(snap *gamedata.Snapshot, namespace, name string, f *analysis.AnalyzedFile) bool {
	if namespace == s.opts.Game.GlobalVariables {
		return true
	}

	if _, ok := f.Symbols.Variable(name); ok {
		return false
	}

	m, _, ok := snap.Index.VariableDefinition(namespace, name)

	return ok && m.Namespace == s.opts.Game.GlobalVariables
}
