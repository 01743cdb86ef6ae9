package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// maxWorkspaceSymbols caps workspace/symbol results; a vanilla install holds
// tens of thousands of entities.
const maxWorkspaceSymbols = 500

// Symbols handles workspace/symbol requests.
// Searches the entities of the loaded game data and of the open documents.
func (s *Server) Symbols(_ context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.logger.Debug("Symbols",
		zap.String("query", params.Query))

	var symbols []protocol.SymbolInformation

	query := strings.ToLower(params.Query)
	matches := func(name string) bool {
		return query == "" || strings.Contains(strings.ToLower(name), query)
	}

	open := make(map[protocol.DocumentURI]bool)

	for _, doc := range s.openDocuments() {
		open[doc.URI] = true

		f := doc.Analysis
		if f == nil || f.Model == nil {
			continue
		}

		for _, e := range f.Symbols.Entities {
			if !matches(e.Name) {
				continue
			}

			symbols = append(symbols, protocol.SymbolInformation{
				Name:          e.Name,
				Kind:          protocol.SymbolKindStruct,
				Location:      protocol.Location{URI: doc.URI, Range: spanToRange(f, e.KeySpan)},
				ContainerName: containerName(e.Type, f.Model.Namespace),
			})
		}
	}

	snap := s.snapshot()
	if snap == nil {
		return symbols, nil
	}

	for _, e := range snap.Entities.All() {
		if len(symbols) >= maxWorkspaceSymbols {
			break
		}

		if e.Info == nil || !matches(e.Name) {
			continue
		}

		// Spans carry the path relative to the root the module came from.
		abs, ok := snap.Index.File(e.Info.KeySpan.Start.Filename)
		if !ok {
			continue
		}

		uri := PathToURI(abs)
		if open[uri] {
			continue
		}

		typ := ""
		if e.Type != nil {
			typ = e.Type.Name
		}

		symbols = append(symbols, protocol.SymbolInformation{
			Name:          e.Name,
			Kind:          protocol.SymbolKindStruct,
			Location:      protocol.Location{URI: uri, Range: lexerRange(e.Info.KeySpan)},
			ContainerName: containerName(typ, e.Namespace),
		})
	}

	return symbols, nil
}

func containerName(typ, namespace string) string {
	if typ == "" {
		return namespace
	}

	return typ + " (" + namespace + ")"
}
