package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

// semanticTokensLegend mirrors the LSP SemanticTokensLegend.
type semanticTokensLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

// semanticTokensProvider is the semanticTokensProvider capability. The
// protocol package's options type lacks the legend, so it is spelled out.
type semanticTokensProvider struct {
	Legend semanticTokensLegend `json:"legend"`
	Full   bool                 `json:"full"`
	Range  bool                 `json:"range"`
}

func semanticTokensOptions() *semanticTokensProvider {
	return &semanticTokensProvider{
		Legend: semanticTokensLegend{
			TokenTypes:     analysis.TokenLegend,
			TokenModifiers: []string{},
		},
		Full:  true,
		Range: true,
	}
}

// SemanticTokensFull handles textDocument/semanticTokens/full requests.
func (s *Server) SemanticTokensFull(_ context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	s.logger.Debug("SemanticTokensFull", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil {
		return nil, nil //nolint:nilnil
	}

	// Tokens of an older parse would land on the wrong text.
	f := doc.Analysis
	if f.Module == nil {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}

	return &protocol.SemanticTokens{Data: analysis.EncodeTokens(f, analysis.Tokens(f))}, nil
}

// SemanticTokensRange handles textDocument/semanticTokens/range requests
// with the tokens that overlap the range.
func (s *Server) SemanticTokensRange(_ context.Context, params *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	s.logger.Debug("SemanticTokensRange", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil {
		return nil, nil //nolint:nilnil
	}

	f := doc.Analysis
	if f.Module == nil {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}

	start, end := offsetAt(f, params.Range.Start), offsetAt(f, params.Range.End)

	var tokens []analysis.Token

	for _, tok := range analysis.Tokens(f) {
		if tok.End > start && tok.Start < end {
			tokens = append(tokens, tok)
		}
	}

	return &protocol.SemanticTokens{Data: analysis.EncodeTokens(f, tokens)}, nil
}
