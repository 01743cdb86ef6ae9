package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestServer_DocumentColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []protocol.Color
	}{
		{
			name: "rgb on the byte scale",
			text: "c = { color = rgb { 255 0 51 } }",
			want: []protocol.Color{{Red: 1, Green: 0, Blue: 0.2, Alpha: 1}},
		},
		{
			name: "rgb on the unit scale with alpha",
			text: "c = { color = rgb { 1 0.5 0 0.5 } }",
			want: []protocol.Color{{Red: 1, Green: 0.5, Blue: 0, Alpha: 0.5}},
		},
		{
			name: "hsv",
			text: "c = { color = hsv { 0 1 1 } }",
			want: []protocol.Color{{Red: 1, Green: 0, Blue: 0, Alpha: 1}},
		},
		{
			name: "hsv360",
			text: "c = { color = hsv360 { 120 100 100 } }",
			want: []protocol.Color{{Red: 0, Green: 1, Blue: 0, Alpha: 1}},
		},
		{
			name: "variables are skipped",
			text: "@r = 1\nc = { color = rgb { @r 0 0 } }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uri := protocol.DocumentURI("file:///mod/common/colors/c.txt")

			server, _ := newTestServer(t)
			openDocument(t, server, uri, tt.text)

			colors, err := server.DocumentColor(context.Background(), &protocol.DocumentColorParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			})
			require.NoError(t, err)
			require.Len(t, colors, len(tt.want))

			for i, want := range tt.want {
				got := colors[i].Color
				assert.InDelta(t, want.Red, got.Red, 0.001)
				assert.InDelta(t, want.Green, got.Green, 0.001)
				assert.InDelta(t, want.Blue, got.Blue, 0.001)
				assert.InDelta(t, want.Alpha, got.Alpha, 0.001)
			}
		})
	}
}

func TestServer_DocumentColor_Range(t *testing.T) {
	t.Parallel()

	uri := protocol.DocumentURI("file:///mod/common/colors/c.txt")
	text := "c = {\n\tcolor = rgb { 255 0 51 }\n}\n"

	server, _ := newTestServer(t)
	openDocument(t, server, uri, text)

	colors, err := server.DocumentColor(context.Background(), &protocol.DocumentColorParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.Len(t, colors, 1)

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 9},
		End:   protocol.Position{Line: 1, Character: 25},
	}, colors[0].Range)
}

func TestServer_ColorPresentation(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	tests := []struct {
		color protocol.Color
		want  string
	}{
		{protocol.Color{Red: 1, Green: 0, Blue: 0.2, Alpha: 1}, "rgb { 255 0 51 }"},
		{protocol.Color{Red: 0, Green: 0, Blue: 0, Alpha: 0.5}, "rgb { 0 0 0 128 }"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			pres, err := server.ColorPresentation(context.Background(), &protocol.ColorPresentationParams{Color: tt.color})
			require.NoError(t, err)
			require.Len(t, pres, 1)
			assert.Equal(t, tt.want, pres[0].Label)
		})
	}
}
