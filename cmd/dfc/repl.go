package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/interp"
	"github.com/raymyers/dryfart/pkg/lexer"
	"github.com/raymyers/dryfart/pkg/parser"
	"github.com/raymyers/dryfart/pkg/value"
)

const (
	historyFile = ".dfc_history"
	promptMain  = "df> "
	promptCont  = "... "
)

// lineReader is the part of liner.State the REPL needs
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newReplCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive interpreter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			home, _ := os.UserHomeDir()
			histPath := filepath.Join(home, historyFile)
			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()

			repl(ln, interp.New(out), out, errOut)
			return nil
		},
	}
}

// repl reads chunks until EOF or a top-level exit. Statements run in a
// scope that persists between chunks; a bare expression prints its value.
func repl(ln lineReader, ip *interp.Interpreter, out, errOut io.Writer) {
	for {
		src, ok := readChunk(ln)
		if !ok {
			fmt.Fprintln(out)
			return
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		exited, err := evalChunk(ip, src, out)
		if err != nil {
			fmt.Fprintf(errOut, "dfc: %v\n", err)
			continue
		}
		if exited {
			return
		}
	}
}

// readChunk reads lines until they parse as statements or as an
// expression. An empty line submits whatever has been read so far.
func readChunk(ln lineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if err != nil {
			// io.EOF on ctrl-D, liner.ErrPromptAborted on ctrl-C
			return "", false
		}
		if strings.TrimSpace(line) == "" {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := parser.Parse(src); err == nil {
			return src, true
		}
		if _, ok := parseExpr(src); ok {
			return src, true
		}
	}
}

// parseExpr parses src as a single expression with nothing after it.
func parseExpr(src string) (ast.Expr, bool) {
	p := parser.New(lexer.New(src))
	e := p.ParseExpression()
	return e, e != nil && len(p.Errors()) == 0 && p.AtEOF()
}

func evalChunk(ip *interp.Interpreter, src string, out io.Writer) (bool, error) {
	prog, err := parser.Parse(src)
	if err == nil {
		return ip.Exec(prog.Body)
	}
	e, ok := parseExpr(src)
	if !ok {
		return false, err
	}
	v, evalErr := ip.Eval(e)
	if evalErr != nil {
		return false, evalErr
	}
	fmt.Fprintln(out, value.Display(v))
	return false, nil
}
