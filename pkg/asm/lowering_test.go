package asm_test

import (
	"testing"

	"hacktoolchain/pkg/asm"
	"hacktoolchain/pkg/hack"
)

func TestHandleCInst(t *testing.T) {
	lowerer := asm.Lowerer{}

	test := func(inst asm.CInstruction, expected hack.Instruction, fail bool) {
		t.Helper()
		got, err := lowerer.HandleCInst(inst)
		if fail {
			if err == nil {
				t.Fatal("expected an error, got none")
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != expected {
			t.Fatalf("expected %v, got %v", expected, got)
		}
	}

	t.Run("dest only", func(t *testing.T) {
		test(asm.CInstruction{Dest: "M", Comp: "D"}, hack.CInstruction{Dest: "M", Comp: "D"}, false)
	})

	t.Run("jump only", func(t *testing.T) {
		test(asm.CInstruction{Comp: "D", Jump: "JMP"}, hack.CInstruction{Comp: "D", Jump: "JMP"}, false)
	})

	t.Run("dest and jump together", func(t *testing.T) {
		test(asm.CInstruction{Dest: "M", Comp: "D", Jump: "JMP"}, hack.CInstruction{Dest: "M", Comp: "D", Jump: "JMP"}, false)
	})

	t.Run("missing comp", func(t *testing.T) {
		test(asm.CInstruction{Dest: "M", Jump: "JMP"}, nil, true)
	})

	t.Run("missing both dest and jump", func(t *testing.T) {
		test(asm.CInstruction{Comp: "D"}, nil, true)
	})
}
