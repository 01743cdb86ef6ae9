package lsp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/cw/lsp"
)

func TestServer_PrepareRename(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	text := "@cost = 10\nb = { cost = @cost }\n"
	openDocument(t, server, buildingURI, text)

	tests := []struct {
		name string
		pos  protocol.Position
		want *protocol.Range
	}{
		{
			name: "variable use",
			pos:  positionOf(t, text, "= @cost", 4),
			want: &protocol.Range{
				Start: protocol.Position{Line: 1, Character: 13},
				End:   protocol.Position{Line: 1, Character: 18},
			},
		},
		{
			name: "variable definition",
			pos:  protocol.Position{Line: 0, Character: 2},
			want: &protocol.Range{End: protocol.Position{Character: 5}},
		},
		{
			name: "property key",
			pos:  positionOf(t, text, "{ cost", 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rng, err := server.PrepareRename(ctx, &protocol.PrepareRenameParams{
				TextDocumentPositionParams: textDocumentPosition(buildingURI, tt.pos),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rng)
		})
	}
}

func TestServer_Rename(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	other := protocol.DocumentURI("file:///mod/common/buildings/other.txt")

	text := "@cost = 10\nb = { cost = @cost }\n"
	openDocument(t, server, buildingURI, text)
	openDocument(t, server, other, "o = { cost = @cost }\n")

	tests := []struct {
		name    string
		newName string
		want    string
		err     error
	}{
		{"with sigil", "@price", "@price", nil},
		{"without sigil", "price", "@price", nil},
		{"invalid character", "@pri-ce", "", lsp.ErrInvalidName},
		{"empty", "@", "", lsp.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			edit, err := server.Rename(ctx, &protocol.RenameParams{
				TextDocumentPositionParams: textDocumentPosition(buildingURI, positionOf(t, text, "= @cost", 3)),
				NewName:                    tt.newName,
			})
			if tt.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err))

				return
			}

			require.NoError(t, err)
			require.NotNil(t, edit)
			require.Len(t, edit.Changes[buildingURI], 2)
			require.Len(t, edit.Changes[other], 1)

			for _, edits := range edit.Changes {
				for _, e := range edits {
					assert.Equal(t, tt.want, e.NewText)
				}
			}

			assert.Equal(t, protocol.Position{Line: 1, Character: 13}, edit.Changes[buildingURI][1].Range.Start)
		})
	}
}

func TestServer_Rename_NotVariable(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	text := "b = { cost = 10 }\n"
	openDocument(t, server, buildingURI, text)

	edit, err := server.Rename(context.Background(), &protocol.RenameParams{
		TextDocumentPositionParams: textDocumentPosition(buildingURI, positionOf(t, text, "cost", 1)),
		NewName:                    "@x",
	})
	require.NoError(t, err)
	assert.Nil(t, edit)
}
