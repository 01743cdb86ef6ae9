package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// Definition handles textDocument/definition requests.
// Supports go-to-definition for scripted variables: the definition in the
// same file, else in the file's namespace or the global variables.
func (s *Server) Definition(_ context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("Definition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	name, ok := variableAtPosition(doc, params.Position)
	if !ok {
		return nil, nil
	}

	f := doc.Analysis

	if v, ok := f.Symbols.Variable(name); ok {
		return []protocol.Location{{URI: doc.URI, Range: spanToRange(f, v.KeySpan)}}, nil
	}

	snap := s.snapshot()
	if snap == nil {
		return nil, nil
	}

	m, p, ok := snap.Index.VariableDefinition(f.Model.Namespace, name)
	if !ok {
		return nil, nil
	}

	abs, ok := snap.Index.File(m.Path)
	if !ok {
		return nil, nil
	}

	uri := PathToURI(abs)

	// Prefer the open buffer, which may have moved the definition.
	if open, ok := s.getDocument(uri); ok && open.Analysis.Model != nil {
		if v, ok := open.Analysis.Symbols.Variable(name); ok {
			return []protocol.Location{{URI: uri, Range: spanToRange(open.Analysis, v.KeySpan)}}, nil
		}
	}

	return []protocol.Location{{URI: uri, Range: lexerRange(p.KeySpan)}}, nil
}

// Declaration handles textDocument/declaration. A scripted variable is
// declared where it is defined.
func (s *Server) Declaration(ctx context.Context, params *protocol.DeclarationParams) ([]protocol.Location, error) {
	return s.Definition(ctx, &protocol.DefinitionParams{TextDocumentPositionParams: params.TextDocumentPositionParams})
}
