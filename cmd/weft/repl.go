package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	weft "github.com/hyperpolymath/weft"
)

const (
	historyFile = ".weft_history"
	promptMain  = "==> "
	promptCont  = "... "
)

var banner = fmt.Sprintf("Weft %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", weft.Version)

const replHelp = `
REPL commands:
  :help    Show this help
  :env     List persistent bindings
  :quit    Exit the REPL
`

type replCmd struct{}

func (replCmd) Run() error {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ip := weft.NewInterp()

	for {
		code, ok := readUntilParses(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			return nil
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return nil
			case ":help":
				fmt.Print(replHelp)
			case ":env":
				names := ip.GlobalNames()
				if len(names) == 0 {
					fmt.Println(styleDim.Render("(no bindings)"))
					break
				}
				for _, name := range names {
					fmt.Println(name)
				}
			default:
				fmt.Println("unknown command. Type :help for a list.")
			}
			continue
		}

		v, err := ip.InterpretPersistent(code)
		if err != nil {
			reportDiagnostics("<repl>", code, err)
			continue
		}
		if v.Tag != weft.VTNull {
			fmt.Println(styleResult.Render(v.String()))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// readUntilParses reads lines until the buffer parses, or until it fails
// with an error that continuation cannot fix. An attempt whose final
// diagnostic points at the end of the input is treated as incomplete and
// keeps the continuation prompt open.
func readUntilParses(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input, not the session.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !needsMore(src) {
			return src, true
		}
	}
}

func needsMore(src string) bool {
	_, errs := weft.Parse(src)
	if len(errs) == 0 {
		return false
	}
	return strings.Contains(errs[len(errs)-1].Msg, "end of input")
}
