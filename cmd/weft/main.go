// Command weft is the toolchain front end: interpreter, JavaScript
// compiler, formatter, and assorted inspection commands for Weft sources.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	weft "github.com/hyperpolymath/weft"
)

const appName = "weft"

// errReported signals a failure whose diagnostics were already printed, so
// main must exit nonzero without adding a second message.
var errReported = errors.New("already reported")

// CLI is the top-level command grammar.
type CLI struct {
	Verbose bool `help:"Enable debug logging to stderr." short:"v"`
	NoColor bool `help:"Disable styled output." name:"no-color"`

	Run     runCmd     `cmd:"" help:"Interpret a program and print its final value."`
	Build   buildCmd   `cmd:"" help:"Compile .weft sources to JavaScript."`
	Watch   watchCmd   `cmd:"" help:"Build, then rebuild whenever sources change."`
	Check   checkCmd   `cmd:"" help:"Parse files and report diagnostics without running them."`
	Fmt     fmtCmd     `cmd:"" help:"Rewrite sources into canonical form."`
	Tokens  tokensCmd  `cmd:"" help:"Dump the token stream of a file."`
	Ast     astCmd     `cmd:"" help:"Dump the parse tree of a file."`
	Repl    replCmd    `cmd:"" help:"Start an interactive session."`
	Version versionCmd `cmd:"" help:"Print the toolchain version."`
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name(appName),
		kong.Description(fmt.Sprintf("Weft %s (built %s): interpreter, JavaScript compiler, and formatter.",
			weft.Version, weft.BuildDate)),
		kong.UsageOnError(),
		kong.BindSingletonProvider(func() context.Context { return context.Background() }),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}

	ktx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	configureLogging(cli.Verbose)
	if cli.NoColor {
		disableStyles()
	}

	if err := ktx.Run(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, styleError.Render(fmt.Sprintf("%s: %v", appName, err)))
		}
		os.Exit(1)
	}
}

func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// readSource loads a file, or stdin when path is "-". The returned name is
// used to label diagnostics.
func readSource(path string) (name, src string, err error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "<stdin>", string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return path, string(b), nil
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

type runCmd struct {
	File       string `arg:"" help:"Source file, or '-' for stdin."`
	CPUProfile string `name:"cpu-profile" placeholder:"DIR" help:"Write a CPU profile under DIR."`
}

func (r *runCmd) Run() error {
	if r.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(r.CPUProfile)).Stop()
	}

	name, src, err := readSource(r.File)
	if err != nil {
		return err
	}

	v, err := weft.NewInterp().Interpret(src)
	if err != nil {
		reportDiagnostics(name, src, err)
		return errReported
	}
	if v.Tag != weft.VTNull {
		fmt.Println(v.String())
	}
	return nil
}

// -----------------------------------------------------------------------------
// check
// -----------------------------------------------------------------------------

type checkCmd struct {
	Files []string `arg:"" help:"Files to parse."`
}

func (c *checkCmd) Run() error {
	bad := 0
	for _, f := range c.Files {
		name, src, err := readSource(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			bad++
			continue
		}
		if _, errs := weft.Parse(src); errs != nil {
			reportDiagnostics(name, src, errs)
			bad++
			continue
		}
		slog.Debug("check ok", "file", name)
	}
	if bad > 0 {
		return errReported
	}
	return nil
}

// -----------------------------------------------------------------------------
// fmt
// -----------------------------------------------------------------------------

type fmtCmd struct {
	Write bool     `short:"w" help:"Rewrite files in place instead of printing."`
	Files []string `arg:"" optional:"" help:"Files to format (stdin when omitted)."`
}

func (f *fmtCmd) Run() error {
	bad := 0
	for _, path := range orStdin(f.Files) {
		name, src, err := readSource(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			bad++
			continue
		}

		formatted, ferr := weft.Format(src)
		if ferr != nil {
			reportDiagnostics(name, src, ferr)
			bad++
			continue
		}

		if !f.Write || path == "-" {
			fmt.Print(formatted)
			continue
		}
		if formatted == src {
			continue
		}
		if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot write %s: %v\n", appName, path, err)
			bad++
			continue
		}
		fmt.Println(path)
	}
	if bad > 0 {
		return errReported
	}
	return nil
}

// orStdin defaults an empty file list to stdin.
func orStdin(files []string) []string {
	if len(files) == 0 {
		return []string{"-"}
	}
	return files
}

// -----------------------------------------------------------------------------
// tokens / ast
// -----------------------------------------------------------------------------

type tokensCmd struct {
	File string `arg:"" help:"Source file, or '-' for stdin."`
}

func (t *tokensCmd) Run() error {
	_, src, err := readSource(t.File)
	if err != nil {
		return err
	}
	for _, tok := range weft.Tokenize(src) {
		fmt.Printf("%3d:%-3d %-18s %q\n", tok.Start.Line, tok.Start.Column, tok.Type, tok.Lexeme)
	}
	return nil
}

type astCmd struct {
	File string `arg:"" help:"Source file, or '-' for stdin."`
}

func (a *astCmd) Run() error {
	name, src, err := readSource(a.File)
	if err != nil {
		return err
	}
	prog, errs := weft.Parse(src)
	if errs != nil {
		reportDiagnostics(name, src, errs)
		return errReported
	}
	fmt.Println(weft.Dump(prog))
	return nil
}

// -----------------------------------------------------------------------------
// version
// -----------------------------------------------------------------------------

type versionCmd struct{}

func (versionCmd) Run() error {
	fmt.Printf("%s %s (built %s)\n", appName, weft.Version, weft.BuildDate)
	return nil
}
