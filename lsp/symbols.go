package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

// DocumentSymbol handles textDocument/documentSymbol requests.
// Returns a hierarchical tree of symbols for the outline view.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil || doc.Analysis.Model == nil {
		return nil, nil
	}

	symbols := buildDocumentSymbols(doc.Analysis, analysis.DocumentSymbols(doc.Analysis))

	// Convert to []any for the protocol
	result := make([]any, len(symbols))
	for i, sym := range symbols {
		result[i] = sym
	}

	return result, nil
}

func buildDocumentSymbols(f *analysis.AnalyzedFile, syms []analysis.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))

	for _, sym := range syms {
		ds := protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         sym.Detail,
			Kind:           symbolKind(sym.Kind),
			Range:          spanToRange(f, sym.Span),
			SelectionRange: spanToRange(f, sym.SelectionSpan),
		}

		if len(sym.Children) > 0 {
			ds.Children = buildDocumentSymbols(f, sym.Children)
		}

		out = append(out, ds)
	}

	return out
}

func symbolKind(k analysis.SymbolKind) protocol.SymbolKind {
	switch k {
	case analysis.SymbolKindEntity:
		return protocol.SymbolKindStruct
	case analysis.SymbolKindVariable:
		return protocol.SymbolKindConstant
	case analysis.SymbolKindProperty:
		return protocol.SymbolKindField
	default:
		return protocol.SymbolKindNull
	}
}
