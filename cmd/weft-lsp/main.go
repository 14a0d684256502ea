// Command weft-lsp is a language server for Weft speaking JSON-RPC 2.0
// over stdio. It keeps open documents in memory with full-text sync and
// publishes parse diagnostics on every change; logging goes to stderr so
// the protocol stream stays clean.
package main

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	weft "github.com/hyperpolymath/weft"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("WEFT_LSP_LOG") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Info("weft-lsp starting", "version", weft.Version)

	s := newServer()
	in := bufio.NewReader(os.Stdin)

	for {
		msgBytes, err := readMsg(in)
		if err != nil {
			if err != io.EOF {
				slog.Error("read failed", "err", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msgBytes, &req); err != nil {
			// Malformed JSON; skip rather than kill the session.
			continue
		}
		slog.Debug("message", "method", req.Method)

		switch req.Method {
		// Lifecycle
		case "initialize":
			s.onInitialize(req.ID)
		case "initialized":
			// no-op
		case "shutdown":
			s.sendResponse(req.ID, nil, nil)
		case "exit":
			return

		// Text sync
		case "textDocument/didOpen":
			s.onDidOpen(req.Params)
		case "textDocument/didChange":
			s.onDidChange(req.Params)
		case "textDocument/didClose":
			s.onDidClose(req.Params)

		default:
			// Requests get MethodNotFound; notifications are ignored.
			if len(req.ID) > 0 {
				s.sendResponse(req.ID, nil, &ResponseError{Code: -32601, Message: "method not found"})
			}
		}
	}
}

func (s *server) onInitialize(id json.RawMessage) {
	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    1, // Full
			},
		},
		ServerInfo: map[string]string{
			"name":    "weft-lsp",
			"version": weft.Version,
		},
	}
	s.sendResponse(id, result, nil)
}

func (s *server) onDidOpen(raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentItem `json:"textDocument"`
	}
	_ = json.Unmarshal(raw, &params)
	if params.TextDocument.URI == "" {
		return
	}

	doc := &docState{
		uri:   params.TextDocument.URI,
		text:  params.TextDocument.Text,
		lines: lineOffsets(params.TextDocument.Text),
	}
	s.mu.Lock()
	s.docs[doc.uri] = doc
	s.mu.Unlock()
	s.analyze(doc)
}

func (s *server) onDidChange(raw json.RawMessage) {
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
		ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
	}
	_ = json.Unmarshal(raw, &params)

	s.mu.Lock()
	doc := s.docs[params.TextDocument.URI]
	s.mu.Unlock()
	if doc == nil || len(params.ContentChanges) == 0 {
		return
	}

	// Sync is full-document: the last rangeless change wins.
	text := ""
	found := false
	for _, ch := range params.ContentChanges {
		if ch.Range == nil {
			text = ch.Text
			found = true
		}
	}
	if !found {
		slog.Warn("ignoring incremental change; server advertised full sync", "uri", doc.uri)
		return
	}

	s.mu.Lock()
	doc.text = text
	doc.lines = lineOffsets(text)
	s.mu.Unlock()
	s.analyze(doc)
}

func (s *server) onDidClose(raw json.RawMessage) {
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	_ = json.Unmarshal(raw, &params)
	if params.TextDocument.URI == "" {
		return
	}

	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()
	s.clearDiagnostics(params.TextDocument.URI)
}
