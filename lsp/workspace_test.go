package lsp_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/lsp"
)

// unknownVariables reports how many unknown-variable diagnostics were last
// published for uri.
func unknownVariables(client *mockClient, uri protocol.DocumentURI) int {
	diag, ok := client.last(uri)
	if !ok {
		return -1
	}

	n := 0

	for _, d := range diag.Diagnostics {
		if d.Code == analysis.CodeUnknownVariable {
			n++
		}
	}

	return n
}

func TestServer_DidCreateFiles(t *testing.T) {
	t.Parallel()

	server, client, root := newDataServer(t, nil)

	uri := lsp.PathToURI(filepath.Join(root, "common", "buildings", "b.txt"))
	openDocument(t, server, uri, "b = { cost = @new_cost }")
	require.Equal(t, 1, unknownVariables(client, uri))

	writeFile(t, root, "common/scripted_variables/01_new.txt", "@new_cost = 3\n")

	err := server.DidCreateFiles(context.Background(), &protocol.CreateFilesParams{
		Files: []protocol.FileCreate{{URI: string(lsp.PathToURI(filepath.Join(root, "common", "scripted_variables", "01_new.txt")))}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return unknownVariables(client, uri) == 0 }, 10*time.Second, 10*time.Millisecond)
}

func TestServer_DidDeleteFiles(t *testing.T) {
	t.Parallel()

	server, client, root := newDataServer(t, map[string]string{
		"common/scripted_variables/00_vars.txt": "@base_cost = 20\n",
	})

	uri := lsp.PathToURI(filepath.Join(root, "common", "buildings", "b.txt"))
	openDocument(t, server, uri, "b = { cost = @base_cost }")
	require.Equal(t, 0, unknownVariables(client, uri))

	vars := filepath.Join(root, "common", "scripted_variables", "00_vars.txt")
	require.NoError(t, os.Remove(vars))

	err := server.DidDeleteFiles(context.Background(), &protocol.DeleteFilesParams{
		Files: []protocol.FileDelete{{URI: string(lsp.PathToURI(vars))}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return unknownVariables(client, uri) == 1 }, 10*time.Second, 10*time.Millisecond)
}

func TestServer_DidRenameFiles(t *testing.T) {
	t.Parallel()

	server, client, root := newDataServer(t, map[string]string{
		"common/scripted_variables/00_vars.txt": "@base_cost = 20\n",
	})

	uri := lsp.PathToURI(filepath.Join(root, "common", "buildings", "b.txt"))
	openDocument(t, server, uri, "b = { cost = @base_cost }")

	// Moved out of the game's script folders, the variables stop loading.
	oldPath := filepath.Join(root, "common", "scripted_variables", "00_vars.txt")
	newPath := filepath.Join(root, "00_vars.txt.bak")
	require.NoError(t, os.Rename(oldPath, newPath))

	err := server.DidRenameFiles(context.Background(), &protocol.RenameFilesParams{
		Files: []protocol.FileRename{{OldURI: string(lsp.PathToURI(oldPath)), NewURI: string(lsp.PathToURI(newPath))}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return unknownVariables(client, uri) == 1 }, 10*time.Second, 10*time.Millisecond)
}

func TestServer_FileOperationsWithoutData(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, server.DidCreateFiles(ctx, &protocol.CreateFilesParams{
		Files: []protocol.FileCreate{{URI: "file:///mod/common/buildings/new.txt"}},
	}))
	require.NoError(t, server.DidChangeWorkspaceFolders(ctx, &protocol.DidChangeWorkspaceFoldersParams{
		Event: protocol.WorkspaceFoldersChangeEvent{
			Added: []protocol.WorkspaceFolder{{URI: "file:///mod", Name: "mod"}},
		},
	}))
	require.NoError(t, server.DidChangeConfiguration(ctx, &protocol.DidChangeConfigurationParams{}))
}
