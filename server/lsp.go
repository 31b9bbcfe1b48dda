package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/ledseq/pkg/sequencer"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "ledseq-lsp"

// LspServer provides editor support for sequencer assembly files:
// diagnostics, mnemonic completion and hover.
type LspServer struct {
	capacity int

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server that checks programs against a buffer
// of the given capacity.
func NewLSP(capacity int) *LspServer {
	s := &LspServer{
		capacity: capacity,
		docs:     make(map[string]string),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "ledseq LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	// Only the first word of a line is an instruction.
	prefix := extractPrefix(text, params.Position)
	line := lineAt(text, params.Position.Line)
	if strings.TrimSpace(line[:min(int(params.Position.Character), len(line))]) != prefix {
		return nil, nil
	}
	return complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hover(text, params.Position), nil
}

// complete returns the instructions whose mnemonic starts with prefix.
func complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, op := range sequencer.AllOpcodes() {
		info, _ := sequencer.GetOpcodeInfo(op)
		if !strings.HasPrefix(info.Mnemonic, lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := fmt.Sprintf("%s, %d bytes", info.Name, op.InstructionLen())
		insert := info.Mnemonic
		items = append(items, protocol.CompletionItem{
			Label:      info.Mnemonic,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}
	return items
}

// hover describes the instruction under the cursor, including the offset
// it will be stored at.
func hover(text string, pos protocol.Position) *protocol.Hover {
	word := strings.ToLower(extractWord(text, pos))
	if word == "" {
		return nil
	}
	fields := strings.Fields(stripComment(lineAt(text, pos.Line)))
	if len(fields) == 0 || strings.ToLower(fields[0]) != word {
		return nil
	}

	var info sequencer.OpcodeInfo
	var op sequencer.Opcode
	found := false
	for _, candidate := range sequencer.AllOpcodes() {
		if i, _ := sequencer.GetOpcodeInfo(candidate); i.Mnemonic == word {
			info, op, found = i, candidate, true
			break
		}
	}
	if !found {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` (0x%02X)\n\n", info.Mnemonic, info.Name, byte(op))
	if info.Operands != "" {
		fmt.Fprintf(&b, "Operands: `%s`\n\n", info.Operands)
	}
	fmt.Fprintf(&b, "%d bytes at offset 0x%04X", op.InstructionLen(), offsetOfLine(text, pos.Line))

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// offsetOfLine returns the program offset of the instruction on line n,
// skipping lines that do not assemble.
func offsetOfLine(text string, n protocol.UInteger) int {
	offset := 0
	for i, line := range strings.Split(text, "\n") {
		if protocol.UInteger(i) >= n {
			break
		}
		if in, ok, err := sequencer.AssembleLine(line); err == nil && ok {
			offset += in.Len()
		}
	}
	return offset
}

// --- Diagnostics ---

// diagnose assembles text line by line, reporting syntax errors and the
// first line that no longer fits in a buffer of the given capacity.
func diagnose(text string, capacity int) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic
	source := lspName
	offset := 0
	overflowReported := false

	for i, line := range strings.Split(text, "\n") {
		in, ok, err := sequencer.AssembleLine(line)
		lineRange := protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(i), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(i), Character: protocol.UInteger(len(line))},
		}
		if err != nil {
			severity := protocol.DiagnosticSeverityError
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    lineRange,
				Severity: &severity,
				Source:   &source,
				Message:  err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}
		offset += in.Len()
		if offset > capacity && !overflowReported {
			overflowReported = true
			severity := protocol.DiagnosticSeverityWarning
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    lineRange,
				Severity: &severity,
				Source:   &source,
				Message:  fmt.Sprintf("program exceeds the %d byte buffer at this instruction", capacity),
			})
		}
	}
	return diagnostics
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text, s.capacity)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Text extraction helpers ---

func lineAt(text string, n protocol.UInteger) string {
	lines := strings.Split(text, "\n")
	if int(n) >= len(lines) {
		return ""
	}
	return lines[n]
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line := lineAt(text, pos.Line)
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full word under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line := lineAt(text, pos.Line)
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
