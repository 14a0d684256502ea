// Shared infrastructure for the language server: framed stdio transport,
// document state, position math, and the parse-and-publish diagnostics
// pipeline. Method routing stays in main.go.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	weft "github.com/hyperpolymath/weft"
)

// -----------------------------------------------------------------------------
// Transport (stdio framing) + send/notify
// -----------------------------------------------------------------------------

var stdoutSink io.Writer = os.Stdout

func init() {
	// Silence unsolicited output during `go test` unless opted in.
	if strings.HasSuffix(os.Args[0], ".test") && os.Getenv("LSP_STDOUT") == "" {
		stdoutSink = io.Discard
	}
}

func readMsg(r *bufio.Reader) ([]byte, error) {
	var contentLen int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if i := strings.IndexByte(line, ':'); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(line[:i]))
			val := strings.TrimSpace(line[i+1:])
			if key == "content-length" {
				_, _ = fmt.Sscanf(val, "%d", &contentLen)
			}
		}
	}
	if contentLen <= 0 {
		return nil, io.EOF
	}
	buf := make([]byte, contentLen)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

func writeMsg(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}

func (s *server) sendResponse(id json.RawMessage, result any, respErr *ResponseError) {
	if respErr == nil && result == nil {
		rawNull := json.RawMessage([]byte("null"))
		_ = writeMsg(stdoutSink, Response{JSONRPC: "2.0", ID: id, Result: rawNull})
		return
	}
	_ = writeMsg(stdoutSink, Response{JSONRPC: "2.0", ID: id, Result: result, Error: respErr})
}

func (s *server) notify(method string, params any) {
	_ = writeMsg(stdoutSink, map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// -----------------------------------------------------------------------------
// Server state & document model
// -----------------------------------------------------------------------------

// docState caches one open document: raw text plus the byte offset of each
// line start, so diagnostics can be mapped without rescanning.
type docState struct {
	uri   string
	text  string
	lines []int
}

type server struct {
	mu   sync.RWMutex
	docs map[string]*docState
}

func newServer() *server {
	return &server{docs: make(map[string]*docState)}
}

// -----------------------------------------------------------------------------
// Text & UTF-16 helpers
// -----------------------------------------------------------------------------

// lineOffsets records the byte offset following each '\n'. CRLF counts as a
// single newline.
func lineOffsets(text string) []int {
	offs := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return offs
}

func toU16(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

// offsetToPos converts a byte offset into an LSP position, counting the
// column in UTF-16 code units.
func offsetToPos(lines []int, off int, text string) Position {
	if off < 0 {
		off = 0
	}
	if off > len(text) {
		off = len(text)
	}
	i, j := 0, len(lines)
	for i+1 < j {
		m := (i + j) / 2
		if lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	u16 := 0
	for k := lines[i]; k < off && k < len(text); {
		r, sz := utf8.DecodeRuneInString(text[k:])
		if r == '\r' {
			k += sz
			continue
		}
		if r == '\n' {
			break
		}
		u16 += toU16(r)
		k += sz
	}
	return Position{Line: i, Character: u16}
}

func makeRange(lines []int, start, end int, text string) Range {
	return Range{
		Start: offsetToPos(lines, start, text),
		End:   offsetToPos(lines, end, text),
	}
}

// -----------------------------------------------------------------------------
// Diagnostics pipeline
// -----------------------------------------------------------------------------

func (s *server) clearDiagnostics(uri string) {
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
}

// analyze reparses the document and publishes one diagnostic per parse
// error, or clears stale diagnostics when the parse is clean.
func (s *server) analyze(doc *docState) {
	_, errs := weft.Parse(doc.text)
	if errs == nil {
		s.clearDiagnostics(doc.uri)
		return
	}

	toks := weft.Tokenize(doc.text)
	diags := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		diags = append(diags, diagnosticFor(e, doc, toks))
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.uri,
		Diagnostics: diags,
	})
}

// diagnosticFor maps a parse error to an LSP diagnostic. The highlighted
// range covers the token at the error offset when one starts there, else a
// single rune so editors always get a non-empty span.
func diagnosticFor(e *weft.ParseError, doc *docState, toks []weft.Token) Diagnostic {
	start := e.Pos.Offset
	if start < 0 {
		start = 0
	}
	if start > len(doc.text) {
		start = len(doc.text)
	}

	end := start
	for _, t := range toks {
		if t.Start.Offset == start && t.End.Offset > start {
			end = t.End.Offset
			break
		}
	}
	if end <= start {
		if start < len(doc.text) {
			_, sz := utf8.DecodeRuneInString(doc.text[start:])
			if sz <= 0 {
				sz = 1
			}
			end = start + sz
		} else if start > 0 {
			_, sz := utf8.DecodeLastRuneInString(doc.text[:start])
			if sz <= 0 {
				sz = 1
			}
			start -= sz
			end = start + sz
		}
	}

	return Diagnostic{
		Range:    makeRange(doc.lines, start, end, doc.text),
		Severity: 1,
		Code:     "PARSE",
		Source:   "weft",
		Message:  e.Msg,
	}
}
