package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

// Completion handles textDocument/completion requests.
func (s *Server) Completion(_ context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil {
		return nil, nil //nolint:nilnil
	}

	// The context always comes from the current text.
	offset := offsetAt(doc.Analysis, params.Position)
	cc := analysis.ContextAt(doc.Analysis.Content, offset)

	// Use last valid analysis for the structure if current parse failed.
	// This allows completion to work while the user is typing (and the file
	// is temporarily invalid); the position is carried over by line and
	// character.
	f := doc.Analysis
	if f.ParseError != nil && doc.LastValidAnalysis != nil {
		s.logger.Debug("Using last valid analysis for completion (current has parse error)")
		f = doc.LastValidAnalysis
		offset = offsetAt(f, params.Position)
	}

	s.logger.Debug("Completion context",
		zap.String("kind", string(cc.Kind)),
		zap.String("prefix", cc.Prefix),
		zap.String("key", cc.Key))

	found := s.analyzer.CompleteContext(f, cc, offset)

	items := make([]protocol.CompletionItem, 0, len(found))
	for _, it := range found {
		items = append(items, protocol.CompletionItem{
			Label:  it.Label,
			Detail: it.Detail,
			Kind:   completionItemKind(it.Kind),
		})
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

func completionItemKind(k analysis.ItemKind) protocol.CompletionItemKind {
	switch k {
	case analysis.ItemProperty:
		return protocol.CompletionItemKindProperty
	case analysis.ItemValue:
		return protocol.CompletionItemKindEnumMember
	case analysis.ItemScope:
		return protocol.CompletionItemKindModule
	case analysis.ItemVariable:
		return protocol.CompletionItemKindVariable
	case analysis.ItemParameter:
		return protocol.CompletionItemKindTypeParameter
	default:
		return protocol.CompletionItemKindText
	}
}

// CompletionResolve handles completionItem/resolve. Items carry everything
// when first sent, so they come back unchanged.
func (s *Server) CompletionResolve(_ context.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	return item, nil
}
