package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/cw/lsp"
)

func completionLabels(t *testing.T, server *lsp.Server, uri protocol.DocumentURI, pos protocol.Position) map[string]protocol.CompletionItemKind {
	t.Helper()

	list, err := server.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: textDocumentPosition(uri, pos),
	})
	require.NoError(t, err)
	require.NotNil(t, list)

	out := make(map[string]protocol.CompletionItemKind, len(list.Items))
	for _, it := range list.Items {
		out[it.Label] = it.Kind
	}

	return out
}

func TestServer_Completion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		needle string // the cursor sits right after it
		want   map[string]protocol.CompletionItemKind
	}{
		{
			name:   "block keys",
			text:   "b = {\n\tup\n}\n",
			needle: "up",
			want:   map[string]protocol.CompletionItemKind{"upkeep": protocol.CompletionItemKindProperty},
		},
		{
			name:   "enum values",
			text:   "b = { size = la }\n",
			needle: "la",
			want:   map[string]protocol.CompletionItemKind{"large": protocol.CompletionItemKindEnumMember},
		},
		{
			name:   "scripted variables",
			text:   "@cost_base = 10\nb = { cost = @co }\n",
			needle: "@co",
			want:   map[string]protocol.CompletionItemKind{"@cost_base": protocol.CompletionItemKindVariable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := newTestServer(t)
			openDocument(t, server, buildingURI, tt.text)

			got := completionLabels(t, server, buildingURI, positionOf(t, tt.text, tt.needle, len(tt.needle)))
			for label, kind := range tt.want {
				assert.Contains(t, got, label)
				assert.Equal(t, kind, got[label], label)
			}
		})
	}
}

func TestServer_Completion_WhileTyping(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	openDocument(t, server, buildingURI, "b = {\n\tcost = 1\n\t\n}\n")

	// The unclosed key leaves the buffer unparsable.
	text := "b = {\n\tcost = 1\n\tsi\n"
	err := server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: buildingURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
	require.NoError(t, err)

	got := completionLabels(t, server, buildingURI, positionOf(t, text, "si", 2))
	assert.Contains(t, got, "size")
}

func TestServer_Completion_UnknownDocument(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	list, err := server.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: textDocumentPosition(buildingURI, protocol.Position{}),
	})
	require.NoError(t, err)
	assert.Nil(t, list)
}
