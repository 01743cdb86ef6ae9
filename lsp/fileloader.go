package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw/module"
)

// FileLoader maps documents onto game and mod roots. A document's path
// relative to its root decides its namespace, and with it the schema types
// that apply.
type FileLoader struct {
	logger *zap.Logger
	loader *module.Loader

	mu sync.RWMutex

	// workspaceRoot is the root directory of the workspace (from LSP initialize).
	workspaceRoot string
}

// NewFileLoader creates a file loader over loader, which also detects roots
// through the game's marker files.
func NewFileLoader(logger *zap.Logger, loader *module.Loader) *FileLoader {
	return &FileLoader{logger: logger, loader: loader}
}

// SetWorkspaceRoot sets the workspace root directory.
func (l *FileLoader) SetWorkspaceRoot(root string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.workspaceRoot = root
	l.logger.Info("Workspace root", zap.String("root", root))
}

// WorkspaceRoot returns the workspace root directory, if any.
func (l *FileLoader) WorkspaceRoot() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.workspaceRoot
}

// Rel returns the slash-separated path of p relative to its root. The root
// is the nearest directory holding a game marker file, else the workspace
// root. Outside both, the whole path is returned; namespaces are still
// found from its last common directory.
func (l *FileLoader) Rel(p string) string {
	if root, rel := l.loader.Split(p); strings.Contains(rel, "/") {
		l.logger.Debug("Resolved document root", zap.String("root", root), zap.String("rel", rel))

		return rel
	}

	if ws := l.WorkspaceRoot(); ws != "" {
		if rel, err := filepath.Rel(ws, p); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}

	return filepath.ToSlash(p)
}

// URIToPath converts a document URI to a file system path.
func URIToPath(uri protocol.DocumentURI) string {
	// Parse the URI
	u, err := url.Parse(string(uri))
	if err != nil {
		// Fallback: strip file:// prefix
		return strings.TrimPrefix(string(uri), "file://")
	}

	// For file:// URIs, return the path
	if u.Scheme == "file" {
		return filepath.FromSlash(u.Path)
	}

	return string(uri)
}

// PathToURI converts a file system path to a document URI.
func PathToURI(path string) protocol.DocumentURI {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}

	return protocol.DocumentURI(u.String())
}
