package lsp

import (
	"context"

	"go.lsp.dev/protocol"
)

// DidChangeConfiguration handles workspace/didChangeConfiguration. Settings
// come from .cw.yaml, which is read once at startup.
func (s *Server) DidChangeConfiguration(_ context.Context, _ *protocol.DidChangeConfigurationParams) error {
	s.logger.Debug("DidChangeConfiguration ignored; restart the server to reload .cw.yaml")

	return nil
}

// DidChangeWorkspaceFolders handles workspace/didChangeWorkspaceFolders.
// Documents outside any mod root resolve their namespace against the
// workspace root, which follows the first folder still open.
func (s *Server) DidChangeWorkspaceFolders(_ context.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	root := s.fileLoader.WorkspaceRoot()

	for _, f := range params.Event.Removed {
		if URIToPath(protocol.DocumentURI(f.URI)) == root {
			root = ""
		}
	}

	if root == "" && len(params.Event.Added) > 0 {
		root = URIToPath(protocol.DocumentURI(params.Event.Added[0].URI))
	}

	if root != s.fileLoader.WorkspaceRoot() {
		s.fileLoader.SetWorkspaceRoot(root)
	}

	return nil
}

// DidCreateFiles handles workspace/didCreateFiles.
func (s *Server) DidCreateFiles(_ context.Context, params *protocol.CreateFilesParams) error {
	paths := make([]string, 0, len(params.Files))
	for _, f := range params.Files {
		paths = append(paths, URIToPath(protocol.DocumentURI(f.URI)))
	}

	s.filesChanged("DidCreateFiles", paths)

	return nil
}

// DidRenameFiles handles workspace/didRenameFiles. Both names are
// refreshed: the old one drops out of the index, the new one joins it.
func (s *Server) DidRenameFiles(_ context.Context, params *protocol.RenameFilesParams) error {
	paths := make([]string, 0, 2*len(params.Files))
	for _, f := range params.Files {
		paths = append(paths,
			URIToPath(protocol.DocumentURI(f.OldURI)),
			URIToPath(protocol.DocumentURI(f.NewURI)))
	}

	s.filesChanged("DidRenameFiles", paths)

	return nil
}

// DidDeleteFiles handles workspace/didDeleteFiles.
func (s *Server) DidDeleteFiles(_ context.Context, params *protocol.DeleteFilesParams) error {
	paths := make([]string, 0, len(params.Files))
	for _, f := range params.Files {
		paths = append(paths, URIToPath(protocol.DocumentURI(f.URI)))
	}

	s.filesChanged("DidDeleteFiles", paths)

	return nil
}

// fileOperations registers interest in script files for the Did* file
// notifications.
func fileOperations() *protocol.ServerCapabilitiesWorkspaceFileOperations {
	opts := &protocol.FileOperationRegistrationOptions{
		Filters: []protocol.FileOperationFilter{
			{Scheme: "file", Pattern: protocol.FileOperationPattern{Glob: "**/*.{txt,gui,gfx,asset}"}},
		},
	}

	return &protocol.ServerCapabilitiesWorkspaceFileOperations{
		DidCreate: opts,
		DidRename: opts,
		DidDelete: opts,
	}
}

