package vm

import (
	"fmt"

	"hacktoolchain/pkg/asm"
)

// Maps the four pointer segments to the Hack register that holds their base address.
var segmentBase = map[SegmentType]string{
	Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
}

// Maps a comparison operation to the jump mnemonic used to test its sign.
var comparisonJump = map[ArithOpType]string{
	Eq: "JEQ", Gt: "JGT", Lt: "JLT",
}

// Maps a binary (non-comparison) arithmetic/logic operation to its Hack comp bit-code, given
// that the second-popped operand (x) sits as a value in A and the first-popped (y) sits in D.
var binaryComp = map[ArithOpType]string{
	Add: "D+A", Sub: "A-D", And: "D&A", Or: "D|A",
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one or more already-parsed translation units) and produces
// its 'asm.Program' counterpart, following the standard nand2tetris calling convention.
//
// Unlike the Asm Lowerer (which is a pure pass-1 label collector), the VM Lowerer does the
// actual heavy lifting of this translator: every VM operation expands to a handful of Hack
// assembly instructions. It carries state across the whole Program (not just one Module) since
// the generated return-address/comparison labels must stay globally unique and the 'static'
// segment is mangled per source file.
type Lowerer struct {
	program         Program
	currentFile     string // Base name of the .vm file currently being lowered (for 'static')
	currentFunction string // Name of the enclosing 'function' (for label namespacing), if any
	labelCounter    int    // Monotonic counter, shared across the whole Program
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lowers the whole Program to its 'asm.Program' counterpart. When 'bootstrap' is true, the
// standard prologue (SP=256, call Sys.init) is prepended ahead of every translation unit, using
// the very same Lowerer so that its return-address label doesn't collide with anything below.
func (l *Lowerer) Lower(bootstrap bool) (asm.Program, error) {
	out := asm.Program{}

	if bootstrap {
		inst, err := l.bootstrap()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		out = append(out, inst...)
	}

	for _, module := range l.program {
		l.currentFile = module.Name
		l.currentFunction = ""

		for _, op := range module.Operations {
			inst, err := l.lowerOperation(op)
			if err != nil {
				return nil, fmt.Errorf("module %q: %w", module.Name, err)
			}
			out = append(out, inst...)
		}
	}

	return out, nil
}

// Emits the bootstrap prologue: sets the Stack Pointer to its base location (256) and calls
// 'Sys.init' with no arguments, exactly as every compiled Jack program expects at power-on.
func (l *Lowerer) bootstrap() ([]asm.Instruction, error) {
	prologue := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	call, err := l.lowerFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append(prologue, call...), nil
}

// Dispatches a single Operation to its specialized lowering function.
func (l *Lowerer) lowerOperation(op Operation) ([]asm.Instruction, error) {
	switch tOp := op.(type) {
	case MemoryOp:
		return l.lowerMemoryOp(tOp)
	case ArithmeticOp:
		return l.lowerArithmeticOp(tOp)
	case LabelDecl:
		return l.lowerLabelDecl(tOp)
	case GotoOp:
		return l.lowerGotoOp(tOp)
	case FuncDecl:
		return l.lowerFuncDecl(tOp)
	case FuncCallOp:
		return l.lowerFuncCallOp(tOp)
	case ReturnOp:
		return l.lowerReturnOp(tOp)
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", op)
	}
}

// ----------------------------------------------------------------------------
// Stack helpers

// Appends the value currently in 'D' onto the stack and advances the Stack Pointer.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// Retreats the Stack Pointer and loads the popped value into 'D'.
func popD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// Retreats the Stack Pointer and loads the popped value into 'A' (as a value, not an address) -
// used so a binary op can read its second operand directly as an ALU input alongside 'D'.
func popToA() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "A", Comp: "M"},
	}
}

// ----------------------------------------------------------------------------
// Memory Op

// Resolves a (segment, offset) pair to the instructions needed to load the segment's target
// address into 'A' (not yet dereferenced). The caller then reads ('D=M') or writes ('M=D').
func (l *Lowerer) segmentAddress(segment SegmentType, offset uint16) ([]asm.Instruction, error) {
	switch segment {
	case Local, Argument, This, That:
		return []asm.Instruction{
			asm.AInstruction{Location: segmentBase[segment]},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
		}, nil

	case Static:
		return []asm.Instruction{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.currentFile, offset)},
		}, nil

	case Temp:
		if offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", offset)
		}
		return []asm.Instruction{asm.AInstruction{Location: fmt.Sprint(5 + offset)}}, nil

	case Pointer:
		if offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", offset)
		}
		symbol := "THIS"
		if offset == 1 {
			symbol = "THAT"
		}
		return []asm.Instruction{asm.AInstruction{Location: symbol}}, nil

	default:
		return nil, fmt.Errorf("unrecognized memory segment '%s'", segment)
	}
}

// Specialized function to lower a 'vm.MemoryOp' to its 'asm.Instruction' sequence.
func (l *Lowerer) lowerMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	if op.Segment == Constant {
		if op.Operation != Push {
			return nil, fmt.Errorf("'constant' segment only supports 'push', got %q", op.Operation)
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, pushD()...), nil
	}

	address, err := l.segmentAddress(op.Segment, op.Offset)
	if err != nil {
		return nil, err
	}

	switch op.Operation {
	case Push:
		inst := append(append([]asm.Instruction{}, address...), asm.CInstruction{Dest: "D", Comp: "M"})
		return append(inst, pushD()...), nil

	case Pop:
		// Stashes the resolved address in R13 before popping, since popping may itself
		// clobber A/D (and the stack's own top) before we get a chance to write to it.
		inst := append(append([]asm.Instruction{}, address...),
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		inst = append(inst, popD()...)
		inst = append(inst,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return inst, nil

	default:
		return nil, fmt.Errorf("unrecognized memory operation '%s'", op.Operation)
	}
}

// ----------------------------------------------------------------------------
// Arithmetic Op

// Specialized function to lower a 'vm.ArithmeticOp' to its 'asm.Instruction' sequence.
func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Neg:
		inst := append(popD(), asm.CInstruction{Dest: "D", Comp: "-D"})
		return append(inst, pushD()...), nil

	case Not:
		inst := append(popD(), asm.CInstruction{Dest: "D", Comp: "!D"})
		return append(inst, pushD()...), nil

	case Add, Sub, And, Or:
		inst := append(popD(), popToA()...)
		inst = append(inst, asm.CInstruction{Dest: "D", Comp: binaryComp[op.Operation]})
		return append(inst, pushD()...), nil

	case Eq, Gt, Lt:
		return l.lowerComparison(op.Operation), nil

	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// Lowers one of the three comparison operations (eq, gt, lt) to a branch that pushes -1 (true)
// or 0 (false) back onto the stack, using a pair of uniquely-numbered labels per call site.
func (l *Lowerer) lowerComparison(op ArithOpType) []asm.Instruction {
	n := l.labelCounter
	l.labelCounter++

	trueLabel := fmt.Sprintf("COMPARE.TRUE.%d", n)
	endLabel := fmt.Sprintf("COMPARE.END.%d", n)

	inst := append(popD(), popToA()...)
	inst = append(inst,
		asm.CInstruction{Dest: "D", Comp: "A-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: comparisonJump[op]},
		// False path: push 0 and unconditionally skip over the true path below.
		asm.CInstruction{Dest: "D", Comp: "0"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// True path: push -1 (all bits set).
		asm.LabelDecl{Name: trueLabel},
		asm.CInstruction{Dest: "D", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	)

	return append(inst, pushD()...)
}

// ----------------------------------------------------------------------------
// Branching

// Qualifies a label/goto target with the enclosing function's name, so that two different
// functions are free to reuse the same label name without their jump targets colliding.
func (l *Lowerer) qualify(name string) string {
	if l.currentFunction == "" {
		return name
	}
	return l.currentFunction + "$" + name
}

// Specialized function to lower a 'vm.LabelDecl' to its 'asm.Instruction' sequence.
func (l *Lowerer) lowerLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("label declaration requires a non-empty name")
	}
	return []asm.Instruction{asm.LabelDecl{Name: l.qualify(op.Name)}}, nil
}

// Specialized function to lower a 'vm.GotoOp' to its 'asm.Instruction' sequence.
func (l *Lowerer) lowerGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("jump requires a non-empty target label")
	}
	target := l.qualify(op.Label)

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	return append(popD(),
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	), nil
}

// ----------------------------------------------------------------------------
// Functions

// Specialized function to lower a 'vm.FuncDecl' to its 'asm.Instruction' sequence.
func (l *Lowerer) lowerFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("function declaration requires a non-empty name")
	}
	l.currentFunction = op.Name

	inst := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		inst = append(inst,
			asm.AInstruction{Location: "0"},
			asm.CInstruction{Dest: "D", Comp: "A"},
		)
		inst = append(inst, pushD()...)
	}

	return inst, nil
}

// Specialized function to lower a 'vm.FuncCallOp' to its 'asm.Instruction' sequence.
//
// Follows the standard calling convention: push a freshly generated return address, save the
// caller's LCL/ARG/THIS/THAT, reposition ARG/LCL for the callee and jump, landing back on the
// return-address label once the callee returns.
func (l *Lowerer) lowerFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("call requires a non-empty function name")
	}

	n := l.labelCounter
	l.labelCounter++
	returnLabel := fmt.Sprintf("%s$ret.%d", op.Name, n)

	inst := append([]asm.Instruction{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}, pushD()...)

	for _, sym := range []string{"LCL", "ARG", "THIS", "THAT"} {
		inst = append(inst,
			asm.AInstruction{Location: sym},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		inst = append(inst, pushD()...)
	}

	// ARG = SP - (5 + NArgs)
	inst = append(inst,
		asm.AInstruction{Location: fmt.Sprint(5 + int(op.NArgs))},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	// LCL = SP
	inst = append(inst,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	inst = append(inst,
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)

	return inst, nil
}

// Specialized function to lower a 'vm.ReturnOp' to its 'asm.Instruction' sequence.
//
// Saves the callee's frame base (LCL) to R13 and its return address to R14 before the stack
// gets torn down, since both LCL and the stack's top are about to be overwritten.
func (l *Lowerer) lowerReturnOp(op ReturnOp) ([]asm.Instruction, error) {
	inst := []asm.Instruction{
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	// *ARG = pop(); this is where the caller will find the callee's return value.
	inst = append(inst, popD()...)
	inst = append(inst,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	// SP = ARG + 1
	inst = append(inst,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	// Restore THAT, THIS, ARG, LCL from endFrame-1..endFrame-4 (R13 holds endFrame).
	for i, sym := range []string{"THAT", "THIS", "ARG", "LCL"} {
		offset := i + 1
		inst = append(inst,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "A", Comp: "D-A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: sym},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	inst = append(inst,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return inst, nil
}
