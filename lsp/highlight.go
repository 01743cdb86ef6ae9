package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

// DocumentHighlight handles textDocument/documentHighlight requests.
// Highlights every definition and use of the scripted variable under the
// cursor within the same document.
func (s *Server) DocumentHighlight(_ context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	s.logger.Debug("DocumentHighlight",
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

	var highlights []protocol.DocumentHighlight

	for _, occ := range analysis.VariableOccurrences(f.Module, name) {
		kind := protocol.DocumentHighlightKindRead
		if occ.Definition {
			kind = protocol.DocumentHighlightKindWrite
		}

		highlights = append(highlights, protocol.DocumentHighlight{
			Range: spanToRange(f, occ.Span),
			Kind:  kind,
		})
	}

	return highlights, nil
}

// variableAtPosition returns the scripted variable under pos.
func variableAtPosition(doc *Document, pos protocol.Position) (string, bool) {
	f := doc.Analysis
	if f == nil || f.Module == nil {
		return "", false
	}

	return analysis.VariableAt(f, offsetAt(f, pos))
}
