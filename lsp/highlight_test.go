package lsp_test

import (
	"context"
	"testing"

	"go.lsp.dev/protocol"
)

func TestServer_DocumentHighlight(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	text := "@cost = 10\nb = {\n\tcost = @cost\n\tpotential = { x = @COST }\n}\nc = { cost = @other }\n"
	openDocument(t, server, buildingURI, text)

	tests := []struct {
		name  string
		pos   protocol.Position
		kinds []protocol.DocumentHighlightKind
	}{
		{
			name:  "on definition",
			pos:   positionOf(t, text, "@cost", 1),
			kinds: []protocol.DocumentHighlightKind{protocol.DocumentHighlightKindWrite, protocol.DocumentHighlightKindRead, protocol.DocumentHighlightKindRead},
		},
		{
			name:  "on use",
			pos:   positionOf(t, text, "@COST", 3),
			kinds: []protocol.DocumentHighlightKind{protocol.DocumentHighlightKindWrite, protocol.DocumentHighlightKindRead, protocol.DocumentHighlightKindRead},
		},
		{
			name:  "undefined variable",
			pos:   positionOf(t, text, "@other", 1),
			kinds: []protocol.DocumentHighlightKind{protocol.DocumentHighlightKindRead},
		},
		{
			name: "on a key",
			pos:  positionOf(t, text, "potential", 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			highlights, err := server.DocumentHighlight(ctx, &protocol.DocumentHighlightParams{
				TextDocumentPositionParams: textDocumentPosition(buildingURI, tt.pos),
			})
			if err != nil {
				t.Fatalf("DocumentHighlight() error: %v", err)
			}

			if len(highlights) != len(tt.kinds) {
				t.Fatalf("Expected %d highlights, got %d: %v", len(tt.kinds), len(highlights), highlights)
			}

			for i, h := range highlights {
				if h.Kind != tt.kinds[i] {
					t.Errorf("highlight %d: expected kind %v, got %v", i, tt.kinds[i], h.Kind)
				}
			}
		})
	}
}

func TestServer_DocumentHighlight_Ranges(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	text := "@cost = 10\nb = { cost = @cost }\n"
	openDocument(t, server, buildingURI, text)

	highlights, err := server.DocumentHighlight(context.Background(), &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: textDocumentPosition(buildingURI, protocol.Position{Line: 1, Character: 15}),
	})
	if err != nil {
		t.Fatalf("DocumentHighlight() error: %v", err)
	}

	want := []protocol.Range{
		{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 5}},
		{Start: protocol.Position{Line: 1, Character: 13}, End: protocol.Position{Line: 1, Character: 18}},
	}

	if len(highlights) != len(want) {
		t.Fatalf("Expected %d highlights, got %v", len(want), highlights)
	}

	for i := range want {
		if highlights[i].Range != want[i] {
			t.Errorf("highlight %d: expected %v, got %v", i, want[i], highlights[i].Range)
		}
	}
}
