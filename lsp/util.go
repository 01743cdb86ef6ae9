package lsp

import (
	"go.lsp.dev/protocol"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
)

// spanToRange converts a span of an open document to an LSP range. Offsets
// go through the document's line index, so characters count UTF-16 units.
func spanToRange(f *analysis.AnalyzedFile, span cw.Span) protocol.Range {
	ix := f.Lines()
	sl, sc := ix.Position(span.Start.Offset)
	el, ec := ix.Position(span.End.Offset)

	return protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

// lexerRange converts a span of a file that is not open. Its text is not at
// hand, so columns count bytes.
func lexerRange(span cw.Span) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(max(0, span.Start.Line-1)),   //nolint:gosec // G115: values are small line numbers
			Character: uint32(max(0, span.Start.Column-1)), //nolint:gosec // G115: values are small column numbers
		},
		End: protocol.Position{
			Line:      uint32(max(0, span.End.Line-1)),   //nolint:gosec // G115: values are small line numbers
			Character: uint32(max(0, span.End.Column-1)), //nolint:gosec // G115: values are small column numbers
		},
	}
}

// offsetAt converts an LSP position in f to a byte offset.
func offsetAt(f *analysis.AnalyzedFile, pos protocol.Position) int {
	return f.Lines().Offset(pos.Line, pos.Character)
}

// rangePtr returns a pointer to a Range.
func rangePtr(r protocol.Range) *protocol.Range {
	return &r
}
