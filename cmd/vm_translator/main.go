package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"hacktoolchain/pkg/asm"
	"hacktoolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in 
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	inputs, err := expandInputs(args)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	// Allocates a 'vm.Program' to hold every parsed translation unit (one per .vm file), kept
	// in the exact order the user (or directory listing) provided them in.
	program := vm.Program{}

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extracts the '[]vm.Operation' from it.
		ops, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}

		name := strings.TrimSuffix(path.Base(input), filepath.Ext(input))
		module := vm.Module{Name: name, Operations: ops}

		if err := vm.CheckStackDepth(module); err != nil {
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}

		program = append(program, module)
	}

	// Instantiate a lowerer to convert the program from Vm to Asm. When the user opts in to
	// include the 'bootstrap' code, it's prepended ahead of every translation unit: it sets the
	// Stack Pointer to its base location (256) and calls 'Sys.init' (defined by one of the Modules).
	_, bootstrap := options["bootstrap"]
	lowerer := vm.NewLowerer(program)
	asmProgram, err := lowerer.Lower(bootstrap)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

// Resolves the user-provided positional args to a flat list of '.vm' files, in argument order: a
// directory argument is expanded to every '.vm' file directly inside it, sorted by name (mirroring
// how a Jack class folder is fed to the translator), a file argument is kept as-is.
func expandInputs(args []string) ([]string, error) {
	inputs := make([]string, 0, len(args))

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("unable to stat input '%s': %s", arg, err)
		}

		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(arg, "*.vm"))
		if err != nil {
			return nil, fmt.Errorf("unable to list '.vm' files in '%s': %s", arg, err)
		}
		sort.Strings(matches)
		inputs = append(inputs, matches...)
	}

	return inputs, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
