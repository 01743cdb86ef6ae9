package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw"
)

// Formatting handles textDocument/formatting requests.
func (s *Server) Formatting(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("Formatting", zap.String("uri", string(params.TextDocument.URI)))

	return s.formatDocument(params.TextDocument.URI)
}

// RangeFormatting handles textDocument/rangeFormatting requests. Indentation
// depends on the enclosing blocks, so the whole document is formatted.
func (s *Server) RangeFormatting(_ context.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("RangeFormatting", zap.String("uri", string(params.TextDocument.URI)))

	return s.formatDocument(params.TextDocument.URI)
}

func (s *Server) formatDocument(uri protocol.DocumentURI) ([]protocol.TextEdit, error) {
	doc, ok := s.getDocument(uri)
	if !ok {
		return nil, nil
	}

	// Need a valid parse to format (no parse errors)
	if doc.Analysis == nil || doc.Analysis.Module == nil {
		return nil, nil
	}

	// The project's format settings win over the editor's.
	formatted := cw.FormatWithOptions(doc.Analysis.Module, s.opts.Format)

	// If no change, return empty edits
	if formatted == doc.Content {
		return []protocol.TextEdit{}, nil
	}

	// Return a single edit that replaces the entire document
	endLine, endChar := doc.Analysis.Lines().Position(len(doc.Content))

	return []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: endLine, Character: endChar},
			},
			NewText: formatted,
		},
	}, nil
}
