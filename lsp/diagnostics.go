package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

var severities = map[analysis.DiagnosticSeverity]protocol.DiagnosticSeverity{
	analysis.SeverityError:       protocol.DiagnosticSeverityError,
	analysis.SeverityWarning:     protocol.DiagnosticSeverityWarning,
	analysis.SeverityInformation: protocol.DiagnosticSeverityInformation,
	analysis.SeverityHint:        protocol.DiagnosticSeverityHint,
}

// publishDiagnostics sends the document's current diagnostics. An empty
// list is sent too, so fixed problems clear in the editor.
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	f := doc.Analysis
	if f == nil {
		return
	}

	out := make([]protocol.Diagnostic, len(f.Diagnostics))
	for i, d := range f.Diagnostics {
		sev, ok := severities[d.Severity]
		if !ok {
			sev = protocol.DiagnosticSeverityError
		}

		out[i] = protocol.Diagnostic{
			Range:    spanToRange(f, d.Span),
			Severity: sev,
			Code:     d.Code,
			Source:   d.Source,
			Message:  d.Message,
		}
	}

	s.logger.Debug("Publishing diagnostics",
		zap.String("uri", string(doc.URI)),
		zap.Int32("version", doc.Version),
		zap.Int("count", len(out)))

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version), //nolint:gosec // LSP version numbers are always non-negative
		Diagnostics: out,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}
