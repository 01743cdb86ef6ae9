package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
)

// FoldingRanges handles textDocument/foldingRange requests.
// Returns folding ranges for blocks, conditional blocks and runs of comments.
func (s *Server) FoldingRanges(_ context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	s.logger.Debug("FoldingRanges",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil || doc.Analysis.Module == nil {
		return nil, nil
	}

	f := doc.Analysis

	var ranges []protocol.FoldingRange

	cw.Inspect(f.Module, func(n cw.Node) bool {
		switch n := n.(type) {
		case *cw.Expression:
			if e, ok := n.Value.(*cw.Entity); ok {
				ranges = appendBlockRange(ranges, f, n.Span().Start.Offset, e.EndPos.Offset)
			}
		case *cw.BareValue:
			if e, ok := n.Value.(*cw.Entity); ok {
				ranges = appendBlockRange(ranges, f, e.Pos.Offset, e.EndPos.Offset)
			}
		case *cw.Conditional:
			ranges = appendBlockRange(ranges, f, n.Pos.Offset, n.EndPos.Offset)
		}

		return true
	})

	return append(ranges, commentRanges(f)...), nil
}

// appendBlockRange folds the lines after the block's first up to the line
// before its closing bracket, which stays visible.
func appendBlockRange(ranges []protocol.FoldingRange, f *analysis.AnalyzedFile, start, end int) []protocol.FoldingRange {
	startLine, _ := f.Lines().Position(start)
	endLine, _ := f.Lines().Position(max(start, end-1))

	if endLine <= startLine+1 {
		return ranges
	}

	return append(ranges, protocol.FoldingRange{
		StartLine: startLine,
		EndLine:   endLine - 1,
		Kind:      protocol.RegionFoldingRange,
	})
}

// commentRanges folds runs of two or more comments on consecutive lines.
func commentRanges(f *analysis.AnalyzedFile) []protocol.FoldingRange {
	var (
		ranges     []protocol.FoldingRange
		start, end uint32
		run        int
	)

	flush := func() {
		if run > 1 {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: start,
				EndLine:   end,
				Kind:      protocol.CommentFoldingRange,
			})
		}
	}

	for _, c := range cw.Comments(f.Module) {
		line, _ := f.Lines().Position(c.Pos.Offset)

		if run > 0 && line == end+1 {
			end = line
			run++

			continue
		}

		flush()

		start, end, run = line, line, 1
	}

	flush()

	return ranges
}
