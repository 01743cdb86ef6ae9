// Package lsp implements a Language Server Protocol server for Clausewitz
// scripts.
package lsp

import (
	"context"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/schema"
)

// Options configure a Server.
type Options struct {
	Game   *cw.Game
	Schema *schema.Analyzer

	// Data is loaded in the background once the client is initialized. Nil
	// analyzes each document on its own.
	Data *gamedata.Cache

	// Watch rebuilds Data when files under the mod roots change.
	Watch bool

	// InitTimeout bounds the initial load of Data. Zero uses
	// cw.DefaultInitTimeout.
	InitTimeout time.Duration

	Format cw.FormatOptions
}

// Server implements the LSP Server interface.
type Server struct {
	client protocol.Client
	logger *zap.Logger
	opts   Options

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	analyzer   *analysis.Analyzer
	fileLoader *FileLoader

	// Background work: the initial load of game data and the watcher.
	bg       errgroup.Group
	bgCtx    context.Context //nolint:containedctx // cancelled on shutdown
	bgCancel context.CancelFunc
	ready    chan struct{}

	// Server state
	initialized bool
	shutdown    bool
}

// Document represents an open document in the server.
type Document struct {
	URI protocol.DocumentURI

	// Path is the file's path relative to its game or mod root.
	Path     string
	Version  int32
	Content  string
	Analysis *analysis.AnalyzedFile

	// LastValidAnalysis holds the most recent analysis that parsed successfully.
	// Used for completion when the current document has parse errors.
	LastValidAnalysis *analysis.AnalyzedFile
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Game == nil {
		opts.Game = cw.Stellaris
	}

	if opts.InitTimeout <= 0 {
		opts.InitTimeout = cw.DefaultInitTimeout
	}

	if opts.Format == (cw.FormatOptions{}) {
		opts.Format = cw.DefaultFormatOptions()
	}

	var (
		data   analysis.DataSource
		loader *module.Loader
	)

	if opts.Data != nil {
		data = opts.Data
		loader = opts.Data.Loader()
	} else {
		loader = module.NewLoader(opts.Game)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		client:     client,
		logger:     logger,
		opts:       opts,
		documents:  make(map[protocol.DocumentURI]*Document),
		analyzer:   analysis.NewAnalyzer(opts.Game, opts.Schema, data),
		fileLoader: NewFileLoader(logger, loader),
		bgCtx:      ctx,
		bgCancel:   cancel,
		ready:      make(chan struct{}),
	}
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("root", string(params.RootURI)))

	// Extract workspace root from params
	if params.RootURI != "" {
		s.fileLoader.SetWorkspaceRoot(URIToPath(params.RootURI))
	} else if params.RootPath != "" {
		s.fileLoader.SetWorkspaceRoot(params.RootPath)
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:       true,
			DefinitionProvider:  true,
			DeclarationProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"@", "$", "=", " "},
				ResolveProvider:   false,
			},
			// Document symbol support for outline view
			DocumentSymbolProvider:    true,
			DocumentHighlightProvider: true,
			ReferencesProvider:        true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			WorkspaceSymbolProvider:         true,
			FoldingRangeProvider:            true,
			DocumentFormattingProvider:      true,
			DocumentRangeFormattingProvider: true,
			SemanticTokensProvider:          semanticTokensOptions(),
			ColorProvider:                   true,
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				WorkspaceFolders: &protocol.ServerCapabilitiesWorkspaceFolders{
					Supported:           true,
					ChangeNotifications: true,
				},
				FileOperations: fileOperations(),
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "cw-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// Initialized handles the initialized notification. It starts loading the
// game data; documents are re-analyzed once it is ready.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")
	s.initialized = true

	if s.opts.Data == nil {
		close(s.ready)

		return nil
	}

	s.bg.Go(s.loadData)

	return nil
}

// Ready is closed once the game data has loaded, or failed to.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) loadData() error {
	defer close(s.ready)

	ctx, cancel := context.WithTimeout(s.bgCtx, s.opts.InitTimeout)
	defer cancel()

	start := time.Now()

	snap, err := s.opts.Data.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load game data", zap.Error(err))
		s.showMessage(protocol.MessageTypeError, "cw: loading game data failed: "+err.Error())

		return nil
	}

	fields := []zap.Field{
		zap.Duration("took", time.Since(start)),
		zap.Int("modules", len(snap.Index.Modules())),
		zap.Int("load_errors", len(snap.Index.Errors())),
	}

	if snap.Schema != nil {
		stats := snap.Schema.Stats()
		fields = append(fields, zap.Int("types", stats.Types), zap.Int("aliases", stats.Aliases))
	}

	s.logger.Info("Game data loaded", fields...)

	s.reanalyzeAll(s.bgCtx)

	if s.opts.Watch {
		s.startWatcher()
	}

	return nil
}

// startWatcher watches the mod roots; the vanilla game is not expected to
// change under the editor.
func (s *Server) startWatcher() {
	roots := s.opts.Data.Roots()
	if len(roots) < 2 {
		return
	}

	w, err := gamedata.NewWatcher(s.opts.Data, roots[1:], gamedata.DefaultDebounce)
	if err != nil {
		s.logger.Error("Failed to watch mod roots", zap.Error(err))

		return
	}

	w.OnRefresh = func(changed []string, err error) {
		if err != nil {
			s.logger.Error("Failed to refresh game data", zap.Strings("changed", changed), zap.Error(err))

			return
		}

		s.reanalyzeAll(s.bgCtx)
	}

	s.bg.Go(func() error {
		defer w.Close()

		return w.Run(s.bgCtx)
	})
}

// reanalyzeAll analyzes every open document again and republishes its
// diagnostics.
func (s *Server) reanalyzeAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.documents {
		s.analyze(doc)
		s.publishDiagnostics(ctx, doc)
	}
}

func (s *Server) showMessage(typ protocol.MessageType, msg string) {
	if err := s.client.ShowMessage(s.bgCtx, &protocol.ShowMessageParams{Type: typ, Message: msg}); err != nil {
		s.logger.Debug("Failed to show message", zap.Error(err))
	}
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")
	s.shutdown = true
	s.bgCancel()

	if err := s.bg.Wait(); err != nil && s.bgCtx.Err() == nil {
		s.logger.Error("Background task failed", zap.Error(err))
	}

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{
		URI:     params.TextDocument.URI,
		Path:    s.fileLoader.Rel(URIToPath(params.TextDocument.URI)),
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	}

	s.analyze(doc)
	s.documents[params.TextDocument.URI] = doc

	s.publishDiagnostics(ctx, doc)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Debug("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync - take the last content change (should only be one with full sync)
	if len(params.ContentChanges) > 0 {
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version

		s.analyze(doc)
		s.publishDiagnostics(ctx, doc)
	}

	return nil
}

// analyze re-runs analysis on doc. Callers hold s.mu.
func (s *Server) analyze(doc *Document) {
	doc.Analysis = s.analyzer.Analyze(doc.Path, []byte(doc.Content))

	// If parsing succeeded, save as last valid analysis for completion fallback
	if doc.Analysis.ParseError == nil {
		doc.LastValidAnalysis = doc.Analysis
	}
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, params.TextDocument.URI)

	// Clear diagnostics for closed document
	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications. Without a watcher a
// saved file is folded into the game data here.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	if s.opts.Data == nil || s.opts.Watch {
		return nil
	}

	if _, err := s.opts.Data.Snapshot(); err != nil {
		return nil //nolint:nilerr // not loaded yet; the initial load reads the file
	}

	s.refresh(URIToPath(params.TextDocument.URI))

	return nil
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles
// notifications from clients that watch files themselves.
func (s *Server) DidChangeWatchedFiles(_ context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	changed := make([]string, 0, len(params.Changes))
	for _, c := range params.Changes {
		changed = append(changed, URIToPath(c.URI))
	}

	s.filesChanged("DidChangeWatchedFiles", changed)

	return nil
}

// filesChanged refreshes the game data for files the client reports as
// changed on disk. With a watcher of our own the reports are redundant.
func (s *Server) filesChanged(method string, changed []string) {
	if s.opts.Data == nil || s.opts.Watch || len(changed) == 0 {
		return
	}

	if _, err := s.opts.Data.Snapshot(); err != nil {
		return // not loaded yet; the initial load reads the files
	}

	s.logger.Info(method, zap.Strings("changed", changed))
	s.refresh(changed...)
}

// refresh rebuilds the game data in the background and re-analyzes the
// open documents against it.
func (s *Server) refresh(changed ...string) {
	s.bg.Go(func() error {
		if err := s.opts.Data.Refresh(s.bgCtx, changed...); err != nil {
			s.logger.Error("Failed to refresh game data", zap.Strings("changed", changed), zap.Error(err))

			return nil
		}

		s.reanalyzeAll(s.bgCtx)

		return nil
	})
}

// getDocument returns a copy of a document by URI (read-locked). Background
// re-analysis replaces the fields of the stored document.
func (s *Server) getDocument(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]
	if !ok {
		return nil, false
	}

	cp := *doc

	return &cp, true
}

// openDocuments returns copies of the open documents.
func (s *Server) openDocuments() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		cp := *doc
		out = append(out, &cp)
	}

	return out
}

// snapshot returns the loaded game data, or nil.
func (s *Server) snapshot() *gamedata.Snapshot {
	if s.opts.Data == nil {
		return nil
	}

	snap, err := s.opts.Data.Snapshot()
	if err != nil {
		return nil
	}

	return snap
}
