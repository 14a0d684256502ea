package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// wireNotif is a minimal envelope for the notifications under test.
type wireNotif struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// captureSink redirects framed output into a buffer for the duration of a
// test.
func captureSink(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdoutSink
	stdoutSink = &buf
	t.Cleanup(func() { stdoutSink = old })
	return &buf
}

// readAllMsgs decodes every framed message currently in buf.
func readAllMsgs(t *testing.T, buf *bytes.Buffer) [][]byte {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	var bodies [][]byte
	for {
		body, err := readMsg(r)
		if err != nil {
			return bodies
		}
		bodies = append(bodies, body)
	}
}

// lastDiagnostics returns the params of the last publishDiagnostics
// notification in buf.
func lastDiagnostics(t *testing.T, buf *bytes.Buffer) PublishDiagnosticsParams {
	t.Helper()
	var last *PublishDiagnosticsParams
	for _, body := range readAllMsgs(t, buf) {
		var n wireNotif
		if err := json.Unmarshal(body, &n); err != nil {
			t.Fatalf("cannot decode notification: %v\nbody: %s", err, body)
		}
		if n.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			t.Fatalf("cannot decode params: %v\nbody: %s", err, body)
		}
		last = &p
	}
	if last == nil {
		t.Fatalf("no publishDiagnostics notification in output:\n%s", buf.String())
	}
	return *last
}

func openDoc(t *testing.T, s *server, uri, text string) {
	t.Helper()
	item := map[string]any{
		"textDocument": TextDocumentItem{URI: uri, LanguageID: "weft", Version: 1, Text: text},
	}
	raw, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal didOpen params: %v", err)
	}
	s.onDidOpen(raw)
}

func Test_Framing_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := map[string]any{"jsonrpc": "2.0", "method": "initialized"}
	if err := writeMsg(&buf, payload); err != nil {
		t.Fatalf("writeMsg: %v", err)
	}

	body, err := readMsg(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readMsg: %v", err)
	}
	var n wireNotif
	if err := json.Unmarshal(body, &n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Method != "initialized" || n.JSONRPC != "2.0" {
		t.Fatalf("round trip got method %q jsonrpc %q", n.Method, n.JSONRPC)
	}
}

func Test_UTF16_Positioning(t *testing.T) {
	text := "a\U0001f642b\n" // the emoji is 2 UTF-16 code units
	lines := lineOffsets(text)

	off := 1 + 4 // byte offset of 'b'
	pos := offsetToPos(lines, off, text)
	if pos.Line != 0 || pos.Character != 3 {
		t.Fatalf("offsetToPos = (%d,%d), want (0,3)", pos.Line, pos.Character)
	}

	pos = offsetToPos(lines, len(text), text)
	if pos.Line != 1 || pos.Character != 0 {
		t.Fatalf("end of text = (%d,%d), want (1,0)", pos.Line, pos.Character)
	}
}

func Test_Initialize_AdvertisesFullSync(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	s.onInitialize(json.RawMessage(`1`))

	bodies := readAllMsgs(t, buf)
	if len(bodies) != 1 {
		t.Fatalf("expected 1 response, got %d", len(bodies))
	}
	var resp struct {
		Result InitializeResult `json:"result"`
	}
	if err := json.Unmarshal(bodies[0], &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sync := resp.Result.Capabilities.TextDocumentSync
	if !sync.OpenClose || sync.Change != 1 {
		t.Fatalf("sync = %+v, want openClose with full change", sync)
	}
	if resp.Result.ServerInfo["name"] != "weft-lsp" {
		t.Fatalf("server name = %q", resp.Result.ServerInfo["name"])
	}
}

func Test_DidOpen_PublishesParseDiagnostics(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	openDoc(t, s, "file:///broken.weft", "let = 1\n")

	p := lastDiagnostics(t, buf)
	if p.URI != "file:///broken.weft" {
		t.Fatalf("uri = %q", p.URI)
	}
	if len(p.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %+v", len(p.Diagnostics), p.Diagnostics)
	}
	d := p.Diagnostics[0]
	if d.Severity != 1 || d.Source != "weft" || d.Code != "PARSE" {
		t.Fatalf("diagnostic metadata = %+v", d)
	}
	if want := "expected identifier after 'let'"; !strings.Contains(d.Message, want) {
		t.Fatalf("message %q does not contain %q", d.Message, want)
	}
	// The '=' token spans bytes 4..5 on line 0.
	want := Range{Start: Position{Line: 0, Character: 4}, End: Position{Line: 0, Character: 5}}
	if d.Range != want {
		t.Fatalf("range = %+v, want %+v", d.Range, want)
	}
}

func Test_DidOpen_CleanParseClearsDiagnostics(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	openDoc(t, s, "file:///ok.weft", "let x = 1\n")

	p := lastDiagnostics(t, buf)
	if len(p.Diagnostics) != 0 {
		t.Fatalf("expected empty diagnostics, got %+v", p.Diagnostics)
	}
}

func Test_DidChange_ReplacesTextAndReanalyzes(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	openDoc(t, s, "file:///doc.weft", "let = 1\n")

	if p := lastDiagnostics(t, buf); len(p.Diagnostics) == 0 {
		t.Fatalf("expected an initial diagnostic")
	}

	change := map[string]any{
		"textDocument":   map[string]any{"uri": "file:///doc.weft"},
		"contentChanges": []map[string]any{{"text": "let x = 1\n"}},
	}
	raw, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("marshal didChange params: %v", err)
	}
	s.onDidChange(raw)

	p := lastDiagnostics(t, buf)
	if len(p.Diagnostics) != 0 {
		t.Fatalf("expected diagnostics cleared after fix, got %+v", p.Diagnostics)
	}
}

func Test_Diagnostic_AtEndOfInputHighlightsLastRune(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	openDoc(t, s, "file:///eof.weft", "f(1")

	p := lastDiagnostics(t, buf)
	if len(p.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for unterminated call")
	}
	d := p.Diagnostics[0]
	want := Range{Start: Position{Line: 0, Character: 2}, End: Position{Line: 0, Character: 3}}
	if d.Range != want {
		t.Fatalf("range = %+v, want %+v", d.Range, want)
	}
}

func Test_DidClose_DropsDocumentAndClears(t *testing.T) {
	buf := captureSink(t)
	s := newServer()
	openDoc(t, s, "file:///gone.weft", "let = 1\n")

	raw, err := json.Marshal(map[string]any{
		"textDocument": map[string]any{"uri": "file:///gone.weft"},
	})
	if err != nil {
		t.Fatalf("marshal didClose params: %v", err)
	}
	s.onDidClose(raw)

	s.mu.RLock()
	_, open := s.docs["file:///gone.weft"]
	s.mu.RUnlock()
	if open {
		t.Fatalf("document still tracked after didClose")
	}
	p := lastDiagnostics(t, buf)
	if len(p.Diagnostics) != 0 {
		t.Fatalf("expected cleared diagnostics after close, got %+v", p.Diagnostics)
	}
}
