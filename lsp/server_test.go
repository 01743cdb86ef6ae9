package lsp_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/lsp"
	"github.com/rlch/cw/schema"
)

const rules = `types = {
	type[building] = {
		path = "game/common/buildings"
	}
}

enums = {
	enum[size] = { small large }
}

building = {
	cost = int[0..100]
	size = enum[size]
	upkeep = float
}
`

// mockClient implements protocol.Client for testing.
type mockClient struct {
	mu          sync.Mutex
	diagnostics []protocol.PublishDiagnosticsParams
	messages    []protocol.ShowMessageParams
}

func (m *mockClient) PublishDiagnostics(_ context.Context, params *protocol.PublishDiagnosticsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.diagnostics = append(m.diagnostics, *params)

	return nil
}

// last returns the most recent diagnostics published for uri.
func (m *mockClient) last(uri protocol.DocumentURI) (protocol.PublishDiagnosticsParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.diagnostics) - 1; i >= 0; i-- {
		if m.diagnostics[i].URI == uri {
			return m.diagnostics[i], true
		}
	}

	return protocol.PublishDiagnosticsParams{}, false
}

func (m *mockClient) ShowMessage(_ context.Context, params *protocol.ShowMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, *params)

	return nil
}

// Stub out remaining Client interface methods.
func (m *mockClient) Progress(context.Context, *protocol.ProgressParams) error { return nil }
func (m *mockClient) WorkDoneProgressCreate(context.Context, *protocol.WorkDoneProgressCreateParams) error {
	return nil
}
func (m *mockClient) ShowMessageRequest(
	context.Context, *protocol.ShowMessageRequestParams,
) (*protocol.MessageActionItem, error) {
	return nil, nil //nolint:nilnil // Mock stub returns nil for tests
}
func (m *mockClient) LogMessage(context.Context, *protocol.LogMessageParams) error { return nil }
func (m *mockClient) Telemetry(context.Context, any) error                         { return nil }
func (m *mockClient) RegisterCapability(context.Context, *protocol.RegistrationParams) error {
	return nil
}
func (m *mockClient) UnregisterCapability(context.Context, *protocol.UnregistrationParams) error {
	return nil
}
func (m *mockClient) ApplyEdit(context.Context, *protocol.ApplyWorkspaceEditParams) (bool, error) {
	return false, nil
}
func (m *mockClient) Configuration(context.Context, *protocol.ConfigurationParams) ([]any, error) {
	return nil, nil
}
func (m *mockClient) WorkspaceFolders(context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

func testSchema(t *testing.T) *schema.Analyzer {
	t.Helper()

	f, err := cwt.ParseString("rules.cwt", rules)
	require.NoError(t, err)

	return schema.Analyze(f)
}

func newTestServer(t *testing.T) (*lsp.Server, *mockClient) {
	t.Helper()

	client := &mockClient{}
	server := lsp.NewServer(client, zap.NewNop(), lsp.Options{Schema: testSchema(t)})

	ctx := context.Background()
	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	return server, client
}

// newDataServer serves a game root holding files, loaded before it returns.
func newDataServer(t *testing.T, files map[string]string) (*lsp.Server, *mockClient, string) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "descriptor.mod", `name = "test"`)

	for rel, content := range files {
		writeFile(t, root, rel, content)
	}

	s := testSchema(t)
	cache := gamedata.New(gamedata.Options{Game: cw.Stellaris, GamePath: root, Schema: s})

	client := &mockClient{}
	server := lsp.NewServer(client, zap.NewNop(), lsp.Options{Schema: s, Data: cache, InitTimeout: 10 * time.Second})

	ctx := context.Background()
	_, _ = server.Initialize(ctx, &protocol.InitializeParams{RootURI: lsp.PathToURI(root)})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	select {
	case <-server.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("game data did not load")
	}

	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return server, client, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func openDocument(t *testing.T, server *lsp.Server, uri protocol.DocumentURI, text string) {
	t.Helper()

	err := server.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: text},
	})
	require.NoError(t, err)
}

// positionOf returns the position of the first occurrence of needle, moved
// right by shift characters.
func positionOf(t *testing.T, text, needle string, shift int) protocol.Position {
	t.Helper()

	i := strings.Index(text, needle)
	require.GreaterOrEqual(t, i, 0, "%q not in text", needle)

	i += shift
	line := strings.Count(text[:i], "\n")
	col := i - (strings.LastIndex(text[:i], "\n") + 1)

	return protocol.Position{Line: uint32(line), Character: uint32(col)} //nolint:gosec // test positions are small
}

func textDocumentPosition(uri protocol.DocumentURI, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
}

const buildingURI = protocol.DocumentURI("file:///mod/common/buildings/b.txt")

func TestServer_Initialize(t *testing.T) {
	t.Parallel()

	server := lsp.NewServer(&mockClient{}, zap.NewNop(), lsp.Options{})
	ctx := context.Background()

	result, err := server.Initialize(ctx, &protocol.InitializeParams{})
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	// Check capabilities.
	if result.Capabilities.TextDocumentSync == nil {
		t.Error("TextDocumentSync capability not set")
	}

	hoverEnabled, ok := result.Capabilities.HoverProvider.(bool)
	if !ok || !hoverEnabled {
		t.Error("HoverProvider not enabled")
	}

	if result.Capabilities.SemanticTokensProvider == nil {
		t.Error("SemanticTokensProvider not set")
	}

	ws := result.Capabilities.Workspace
	if ws == nil || ws.FileOperations == nil || ws.FileOperations.DidDelete == nil {
		t.Error("file operation notifications not requested")
	}

	// Check server info.
	if result.ServerInfo == nil || result.ServerInfo.Name != "cw-lsp" {
		t.Error("ServerInfo not set correctly")
	}

	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	select {
	case <-server.Ready():
	default:
		t.Error("server without game data should be ready at once")
	}
}

func TestServer_DidOpen_ValidFile(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)

	openDocument(t, server, buildingURI, "b = {\n\tcost = 10\n\tsize = small\n}\n")

	diag, ok := client.last(buildingURI)
	if !ok {
		t.Fatal("Expected diagnostics to be published")
	}

	if len(diag.Diagnostics) != 0 {
		t.Errorf("Expected 0 diagnostics for valid file, got %v", diag.Diagnostics)
	}
}

func TestServer_DidOpen_ParseError(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)

	openDocument(t, server, buildingURI, "b = {\n\tcost = 10\n")

	diag, ok := client.last(buildingURI)
	if !ok {
		t.Fatal("Expected diagnostics to be published")
	}

	if len(diag.Diagnostics) != 1 || diag.Diagnostics[0].Code != analysis.CodeParseError {
		t.Errorf("Expected one parse error diagnostic, got %v", diag.Diagnostics)
	}
}

func TestServer_DidOpen_SemanticError(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)

	text := "b = {\n\tcost = 500\n\tsize = é\n}\n"
	openDocument(t, server, buildingURI, text)

	diag, ok := client.last(buildingURI)
	if !ok {
		t.Fatal("Expected diagnostics to be published")
	}

	if len(diag.Diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %v", diag.Diagnostics)
	}

	cost := diag.Diagnostics[0]
	if cost.Code != analysis.CodeTypeMismatch || cost.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("unexpected diagnostic %v", cost)
	}

	if cost.Range.Start != positionOf(t, text, "500", 0) {
		t.Errorf("cost diagnostic at %v", cost.Range.Start)
	}

	// The range ends after é, one UTF-16 unit but two bytes.
	size := diag.Diagnostics[1]
	if size.Code != analysis.CodeValueNotInSet {
		t.Errorf("unexpected diagnostic %v", size)
	}

	if want := (protocol.Position{Line: 2, Character: 9}); size.Range.End != want {
		t.Errorf("size diagnostic ends at %v, want %v", size.Range.End, want)
	}
}

func TestServer_DidChange(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)
	ctx := context.Background()

	openDocument(t, server, buildingURI, "b = { cost = 500 }")

	err := server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: buildingURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "b = { cost = 5 }"}},
	})
	if err != nil {
		t.Fatalf("DidChange() error: %v", err)
	}

	diag, _ := client.last(buildingURI)
	if diag.Version != 2 || len(diag.Diagnostics) != 0 {
		t.Errorf("Expected clean diagnostics for version 2, got %+v", diag)
	}

	// Unknown documents are ignored.
	err = server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///other.txt"},
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "x"}},
	})
	if err != nil {
		t.Fatalf("DidChange() error: %v", err)
	}
}

func TestServer_DidClose(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)
	ctx := context.Background()

	openDocument(t, server, buildingURI, "b = { cost = 500 }")

	err := server.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: buildingURI},
	})
	if err != nil {
		t.Fatalf("DidClose() error: %v", err)
	}

	diag, _ := client.last(buildingURI)
	if len(diag.Diagnostics) != 0 {
		t.Error("Expected diagnostics to be cleared on close")
	}

	hover, err := server.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: textDocumentPosition(buildingURI, protocol.Position{}),
	})
	if err != nil || hover != nil {
		t.Errorf("Expected no hover for a closed document, got %v, %v", hover, err)
	}
}

func TestServer_GameData(t *testing.T) {
	t.Parallel()

	server, client, root := newDataServer(t, map[string]string{
		"common/scripted_variables/00_vars.txt": "@base_cost = 20\n",
	})

	uri := lsp.PathToURI(filepath.Join(root, "common", "buildings", "b.txt"))
	openDocument(t, server, uri, "b = { cost = @base_cost upkeep = @missing }")

	diag, ok := client.last(uri)
	if !ok {
		t.Fatal("Expected diagnostics to be published")
	}

	if len(diag.Diagnostics) != 1 || diag.Diagnostics[0].Code != analysis.CodeUnknownVariable {
		t.Errorf("Expected only @missing to be reported, got %v", diag.Diagnostics)
	}
}

func TestServer_GameDataLoadFailure(t *testing.T) {
	t.Parallel()

	cache := gamedata.New(gamedata.Options{GamePath: filepath.Join(t.TempDir(), "missing")})
	client := &mockClient{}
	server := lsp.NewServer(client, zap.NewNop(), lsp.Options{Data: cache})

	ctx := context.Background()
	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	<-server.Ready()

	client.mu.Lock()
	defer client.mu.Unlock()

	if len(client.messages) != 1 || client.messages[0].Type != protocol.MessageTypeError {
		t.Errorf("Expected one error message, got %v", client.messages)
	}
}
