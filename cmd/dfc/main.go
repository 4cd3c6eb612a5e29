package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/bytecode"
	"github.com/raymyers/dryfart/pkg/config"
	"github.com/raymyers/dryfart/pkg/interp"
	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/irgen"
	"github.com/raymyers/dryfart/pkg/logger"
	"github.com/raymyers/dryfart/pkg/optimize"
	"github.com/raymyers/dryfart/pkg/parser"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dParse bool
	dIR    bool
	dAsm   bool
)

var (
	configPath string
	opts       = config.Default()
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept a single dash
var debugFlagNames = []string{"dparse", "dir", "dasm"}

// normalizeFlags converts single-dash debug flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dfc [file]",
		Short: "dfc runs and compiles dryfart programs",
		Long: `dfc runs a dryfart program with the tree-walking interpreter, or
compiles it to a bytecode image written next to the source with a
trailing "c" appended to the file name.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return fail(errOut, setup(cmd, errOut))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fail(errOut, doRun(args[0], out))
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&dParse, "dparse", false, "Dump after parsing")
	flags.BoolVar(&dIR, "dir", false, "Dump IR after compiling")
	flags.BoolVar(&dAsm, "dasm", false, "Disassemble the emitted image")
	flags.StringVar(&configPath, "config", "", "YAML settings file")
	config.BindFlags(flags, &opts)

	rootCmd.AddCommand(
		newCompileCmd("t", "Compile to <file>c", false, out, errOut),
		newCompileCmd("to", "Compile with optimization to <file>c", true, out, errOut),
		newDisCmd(out, errOut),
		newReplCmd(out, errOut),
	)
	return rootCmd
}

func newCompileCmd(name, short string, optimized bool, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(errOut, doCompile(args[0], optimized || opts.Optimize, out))
		},
	}
}

func newDisCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dis <file.dfc>",
		Short: "Disassemble a compiled image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(errOut, doDis(args[0], out))
		},
	}
}

// fail reports err on errOut and passes it on.
func fail(errOut io.Writer, err error) error {
	if err != nil {
		fmt.Fprintf(errOut, "dfc: %v\n", err)
	}
	return err
}

// setup applies the config file under any flags given and starts the logger.
func setup(cmd *cobra.Command, errOut io.Writer) error {
	if configPath != "" {
		fromFile, err := config.Load(configPath)
		if err != nil {
			return err
		}
		opts = config.Merge(fromFile, opts, cmd.Flags())
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	cfg, err := opts.LoggerConfig(errOut)
	if err != nil {
		return err
	}
	return logger.Init(cfg)
}

// outputFilename returns the image path for a source file
func outputFilename(filename string) string {
	return filename + "c"
}

// parseFile reads and parses a source file, dumping the AST for -dparse
func parseFile(filename string, out io.Writer) (*ast.Program, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if dParse {
		ast.NewPrinter(out).PrintProgram(prog)
	}
	return prog, nil
}

// doRun interprets a source file
func doRun(filename string, out io.Writer) error {
	prog, err := parseFile(filename, out)
	if err != nil {
		return err
	}
	if dParse {
		return nil
	}
	return interp.New(out).Run(prog)
}

// doCompile compiles a source file and writes the image once every stage
// has succeeded
func doCompile(filename string, optimized bool, out io.Writer) error {
	prog, err := parseFile(filename, out)
	if err != nil {
		return err
	}
	irProg, err := irgen.Compile(prog)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if optimized {
		stats, err := optimize.Optimize(irProg, opts.OptimizeOptions())
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		logger.Info("optimized", "file", filename, "passes", stats.Passes, "rewrites", stats.Total())
	}
	if dIR {
		ir.NewPrinter(out).PrintProgram(irProg)
	}

	image, err := bytecode.Emit(irProg)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if dAsm {
		if err := disassemble(image, out); err != nil {
			return err
		}
	}

	path := outputFilename(filename)
	if err := os.WriteFile(path, image, 0644); err != nil {
		return err
	}
	logger.Info("wrote image", "file", path, "bytes", len(image))
	return nil
}

// doDis disassembles an image file
func doDis(filename string, out io.Writer) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := disassemble(data, out); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}

func disassemble(data []byte, out io.Writer) error {
	img, err := bytecode.ReadImage(data)
	if err != nil {
		return err
	}
	return bytecode.NewDisassembler(out).Disassemble(img)
}
