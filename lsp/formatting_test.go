package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw"
	"github.com/rlch/cw/lsp"
)

func formatting(t *testing.T, server *lsp.Server) []protocol.TextEdit {
	t.Helper()

	edits, err := server.Formatting(context.Background(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: buildingURI},
		// Editor options are ignored in favour of the configured style.
		Options: protocol.FormattingOptions{TabSize: 8, InsertSpaces: true},
	})
	require.NoError(t, err)

	return edits
}

func TestServer_Formatting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		want  string
		empty bool
	}{
		{
			name: "reindents",
			text: "b={\ncost=1\n}",
			want: "b = {\n    cost = 1\n}\n",
		},
		{
			name:  "already formatted",
			text:  "b = {\n    cost = 1\n}\n",
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := newTestServer(t)
			openDocument(t, server, buildingURI, tt.text)

			edits := formatting(t, server)
			if tt.empty {
				assert.Empty(t, edits)

				return
			}

			require.Len(t, edits, 1)
			assert.Equal(t, tt.want, edits[0].NewText)
			assert.Equal(t, protocol.Position{}, edits[0].Range.Start)
			assert.Equal(t, protocol.Position{Line: 2, Character: 1}, edits[0].Range.End)
		})
	}
}

func TestServer_Formatting_Options(t *testing.T) {
	t.Parallel()

	server := lsp.NewServer(&mockClient{}, zap.NewNop(), lsp.Options{
		Format: cw.FormatOptions{UseTabs: true, MaxBlankLines: 1},
	})
	openDocument(t, server, buildingURI, "b = {\ncost = 1\n}\n")

	edits := formatting(t, server)
	require.Len(t, edits, 1)
	assert.Equal(t, "b = {\n\tcost = 1\n}\n", edits[0].NewText)
}

func TestServer_Formatting_ParseError(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	openDocument(t, server, buildingURI, "b = {\ncost = 1\n")

	assert.Nil(t, formatting(t, server))
}

func TestServer_RangeFormatting(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	openDocument(t, server, buildingURI, "b={\ncost=1\n}")

	// Only the middle line is selected; the whole document is rewritten.
	edits, err := server.RangeFormatting(context.Background(), &protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: buildingURI},
		Range: protocol.Range{
			Start: protocol.Position{Line: 1},
			End:   protocol.Position{Line: 1, Character: 6},
		},
	})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "b = {\n    cost = 1\n}\n", edits[0].NewText)
}
