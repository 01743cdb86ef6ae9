package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/analysis"
)

// ErrInvalidName is returned when a rename target is not a valid scripted
// variable name.
var ErrInvalidName = errors.New("invalid scripted variable name")

// PrepareRename handles textDocument/prepareRename requests.
// Validates that rename is possible and returns the range of the symbol to rename.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	s.logger.Debug("PrepareRename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	f := doc.Analysis
	if f == nil || f.Module == nil {
		return nil, nil //nolint:nilnil
	}

	offset := offsetAt(f, params.Position)

	name, ok := analysis.VariableAt(f, offset)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	for _, occ := range analysis.VariableOccurrences(f.Module, name) {
		if occ.Span.Start.Offset <= offset && offset <= occ.Span.End.Offset {
			return rangePtr(spanToRange(f, occ.Span)), nil
		}
	}

	return nil, nil //nolint:nilnil
}

// Rename handles textDocument/rename requests.
// Renames the scripted variable under the cursor and all its references.
func (s *Server) Rename(_ context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.logger.Debug("Rename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.String("newName", params.NewName))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	name, ok := variableAtPosition(doc, params.Position)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	newName, err := validateVariableName(params.NewName)
	if err != nil {
		return nil, err
	}

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)

	for _, loc := range s.variableReferences(doc, name, true) {
		changes[loc.URI] = append(changes[loc.URI], protocol.TextEdit{Range: loc.Range, NewText: newName})
	}

	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// validateVariableName checks a new variable name, adding the @ sigil when
// it is missing.
func validateVariableName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}

	if len(name) < 2 {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}

		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, c)
	}

	return name, nil
}
