package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/raymyers/dryfart/pkg/bytecode"
	"github.com/raymyers/dryfart/pkg/config"
	"github.com/raymyers/dryfart/pkg/interp"
)

// resetFlags restores the package-level flag state between commands.
func resetFlags() {
	dParse, dIR, dAsm = false, false, false
	configPath = ""
	opts = config.Default()
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.df")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func execute(args ...string) (string, string, error) {
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestDebugFlagsExist(t *testing.T) {
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	for _, flagName := range append(debugFlagNames, "config", "passes", "no-thread", "log-level", "log-format") {
		if cmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-dparse", "t", "-dir", "x.df", "-v", "--dasm"})
	want := []string{"--dparse", "t", "--dir", "x.df", "-v", "--dasm"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeFlags = %v, want %v", got, want)
	}
}

func TestRunFile(t *testing.T) {
	path := writeSource(t, `STD$io$putLn("hello").`)
	out, errOut, err := execute(path)
	if err != nil {
		t.Fatalf("run: %v (%s)", err, errOut)
	}
	if out != "hello\n" {
		t.Errorf("output = %q, want %q", out, "hello\n")
	}
}

func TestRunRuntimeError(t *testing.T) {
	path := writeSource(t, "x = 1U + 1.")
	_, errOut, err := execute(path)
	if !errors.Is(err, interp.ErrType) {
		t.Errorf("err = %v, want a type error", err)
	}
	if !strings.HasPrefix(errOut, "dfc: ") {
		t.Errorf("stderr = %q, want a dfc diagnostic", errOut)
	}
}

func TestDParseFlag(t *testing.T) {
	path := writeSource(t, "x = 1U + 2U.")
	out, _, err := execute("-dparse", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "x = (1U + 2U).") {
		t.Errorf("expected the program in the dump, got %q", out)
	}
}

func TestCompileWritesImage(t *testing.T) {
	path := writeSource(t, "a = 42U. b = a + 1U.")
	if _, errOut, err := execute("t", path); err != nil {
		t.Fatalf("compile: %v (%s)", err, errOut)
	}
	data, err := os.ReadFile(path + "c")
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte(bytecode.Magic)) {
		t.Errorf("image starts with % x", data[:8])
	}
	img, err := bytecode.ReadImage(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Pages) != 1 {
		t.Errorf("pages = %d, want 1", len(img.Pages))
	}
}

func TestCompileOptimizedDumpsIR(t *testing.T) {
	path := writeSource(t, "x = 1. y = 2. [ x < y => a = 1U. | => a = 2U. ].")
	out, _, err := execute("-dir", "to", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "jge b") {
		t.Errorf("expected a compare jump in:\n%s", out)
	}

	out, _, err = execute("-dir", "t", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "lt\n  jf b") {
		t.Errorf("unoptimized IR should keep lt and jf:\n%s", out)
	}
}

func TestCompileErrorWritesNothing(t *testing.T) {
	path := writeSource(t, "x = y.")
	_, errOut, err := execute("t", path)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(errOut, "dfc: ") || !strings.Contains(errOut, "undefined name: y") {
		t.Errorf("stderr = %q", errOut)
	}
	if _, err := os.Stat(path + "c"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image written after a failed compile: %v", err)
	}
}

func TestSyntaxError(t *testing.T) {
	path := writeSource(t, "x = .")
	_, errOut, err := execute("to", path)
	if err == nil || !strings.Contains(errOut, "line 1") {
		t.Errorf("err = %v, stderr = %q", err, errOut)
	}
}

func TestMissingFile(t *testing.T) {
	_, errOut, err := execute("t", filepath.Join(t.TempDir(), "none.df"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
	if !strings.HasPrefix(errOut, "dfc: ") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestDisassembleCommand(t *testing.T) {
	path := writeSource(t, "f = func(x) { return x. }. y = f(3U).")
	if _, _, err := execute("t", path); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute("dis", path+"c")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"page 0 main", "page 1 f (arity=1", "mk.func", "call.func", "ret"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestDisassembleRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.dfc")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute("dis", path); !errors.Is(err, bytecode.ErrBadImage) {
		t.Errorf("err = %v, want ErrBadImage", err)
	}
}

func TestDAsmFlag(t *testing.T) {
	path := writeSource(t, "a = 42U.")
	out, _, err := execute("-dasm", "t", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "const        0 ; 42U") || !strings.Contains(out, "halt") {
		t.Errorf("unexpected disassembly:\n%s", out)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "dfc.yaml")
	if err := os.WriteFile(cfg, []byte("optimize: true\npasses: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeSource(t, "x = 1. y = 2. [ x < y => a = 1U. | => a = 2U. ].")

	// zero passes from the file leaves the branch alone
	out, _, err := execute("--config", cfg, "-dir", "t", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "lt\n  jf b") {
		t.Errorf("passes: 0 should not optimize:\n%s", out)
	}

	// a flag beats the file
	out, _, err = execute("--config", cfg, "--passes", "3", "-dir", "t", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "jge b") {
		t.Errorf("--passes should override the file:\n%s", out)
	}
}

func TestBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "dfc.yaml")
	if err := os.WriteFile(cfg, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeSource(t, "x = 1.")
	if _, _, err := execute("--config", cfg, "t", path); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if _, _, err := execute("--passes", "-2", "t", path); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

// scriptReader feeds the REPL fixed lines, then io.EOF.
type scriptReader struct {
	lines   []string
	history []string
}

func (s *scriptReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func TestRepl(t *testing.T) {
	ln := &scriptReader{lines: []string{
		"x = 2.",
		"x + 1",
		"y =",
		"5.",
		"STD$io$putLn(y).",
		"x = .",
		"",
		"z",
		"exit.",
		"STD$io$putLn(99).",
	}}
	var out, errOut bytes.Buffer
	repl(ln, interp.New(&out), &out, &errOut)

	if got, want := out.String(), "3\n5\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if !strings.Contains(errOut.String(), "dfc: ") || strings.Count(errOut.String(), "dfc: ") != 2 {
		t.Errorf("expected a syntax error and an undefined name, got %q", errOut.String())
	}
	if len(ln.history) == 0 || ln.history[1] != "x + 1" || ln.history[2] != "y = 5." {
		t.Errorf("history = %q", ln.history)
	}
	if len(ln.lines) != 1 {
		t.Errorf("repl should stop at exit, %d lines left", len(ln.lines))
	}
}

func TestReplStopsAtEOF(t *testing.T) {
	var out, errOut bytes.Buffer
	repl(&scriptReader{}, interp.New(&out), &out, &errOut)
	if out.String() != "\n" || errOut.Len() != 0 {
		t.Errorf("out = %q, err = %q", out.String(), errOut.String())
	}
}
