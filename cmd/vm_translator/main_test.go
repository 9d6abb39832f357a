package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Writes 'source' to a fresh '<name>.vm' file inside a temp directory and runs the Handler
// against it, returning the lines of the produced '.asm' file.
func runTranslator(t *testing.T, name string, source string, options map[string]string) []string {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, name+".vm")
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write fixture: %s", err)
	}

	output := filepath.Join(dir, name+".asm")
	opts := map[string]string{"output": output}
	for k, v := range options {
		opts[k] = v
	}

	if status := Handler([]string{input}, opts); status != 0 {
		t.Fatalf("unexpected exit status: expected 0, got %d", status)
	}

	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("failed to read generated output: %s", err)
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	return lines
}

func TestVMTranslator(t *testing.T) {
	t.Run("SimpleAdd", func(t *testing.T) {
		lines := runTranslator(t, "SimpleAdd", "push constant 7\npush constant 8\nadd\n", nil)

		// Two 'push constant' (7 lines apiece) plus one 'add' (12 lines): 26 total.
		if len(lines) != 26 {
			t.Fatalf("expected 26 lines of assembly, got %d", len(lines))
		}
		if lines[0] != "@7" || lines[7] != "@8" {
			t.Fatalf("expected the two pushed constants to be the first instruction of their block")
		}
	})

	t.Run("StackTest", func(t *testing.T) {
		source := "push constant 17\npush constant 17\neq\npush constant 5\nneg\npush constant 0\nnot\n"
		lines := runTranslator(t, "StackTest", source, nil)

		if len(lines) == 0 {
			t.Fatal("expected non-empty output")
		}
		// 'eq' expands to a unique compare/true/end label pair.
		if !containsPrefix(lines, "(COMPARE.TRUE.0)") || !containsPrefix(lines, "(COMPARE.END.0)") {
			t.Fatalf("expected a numbered comparison label pair in the output")
		}
	})

	t.Run("PointerTest", func(t *testing.T) {
		source := "push constant 3010\npop pointer 0\npush constant 3020\npop pointer 1\npush this 0\npush that 0\nadd\n"
		lines := runTranslator(t, "PointerTest", source, nil)

		if !contains(lines, "@THIS") || !contains(lines, "@THAT") {
			t.Fatalf("expected 'pointer' segment accesses to resolve directly to THIS/THAT")
		}
	})

	t.Run("StaticTest", func(t *testing.T) {
		source := "push constant 111\npop static 0\npush constant 222\npop static 1\n"
		lines := runTranslator(t, "StaticTest", source, nil)

		if !contains(lines, "@StaticTest.0") || !contains(lines, "@StaticTest.1") {
			t.Fatalf("expected 'static' segment variables to be mangled with the module's name")
		}
	})

	t.Run("BasicLoop", func(t *testing.T) {
		source := "push constant 0\nlabel LOOP_START\npush constant 1\nadd\ngoto LOOP_START\n"
		lines := runTranslator(t, "BasicLoop", source, nil)

		if !contains(lines, "(LOOP_START)") {
			t.Fatalf("expected the unqualified 'LOOP_START' label outside any function")
		}
		if !contains(lines, "@LOOP_START") {
			t.Fatalf("expected 'goto LOOP_START' to reference the same symbol")
		}
	})

	t.Run("SimpleFunction", func(t *testing.T) {
		source := "function SimpleFunction.test 2\npush local 0\npush local 1\nadd\nreturn\n"
		lines := runTranslator(t, "SimpleFunction", source, nil)

		if !contains(lines, "(SimpleFunction.test)") {
			t.Fatalf("expected the function's entry label in the output")
		}
		if !contains(lines, "@LCL") || !contains(lines, "@ARG") {
			t.Fatalf("expected the 'return' sequence to touch LCL/ARG while tearing down the frame")
		}
	})

	t.Run("bootstrap prepends SP=256 and calls Sys.init", func(t *testing.T) {
		source := "function Sys.init 0\npush constant 0\nreturn\n"
		lines := runTranslator(t, "Bootstrap", source, map[string]string{"bootstrap": "true"})

		if lines[0] != "@256" {
			t.Fatalf("expected the first instruction to load the base Stack Pointer address, got %q", lines[0])
		}
		if !contains(lines, "@Sys.init") {
			t.Fatalf("expected the bootstrap block to jump into 'Sys.init'")
		}
	})
}

func contains(lines []string, needle string) bool {
	for _, l := range lines {
		if l == needle {
			return true
		}
	}
	return false
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
