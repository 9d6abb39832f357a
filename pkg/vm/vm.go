package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just an ordered set of multiple modules/files, in the VM spec each Jack
// class is translated to its own .vm file (just like Java .class file) that can be handled
// as its own translation unit during the compilation or lowering phases.
//
// The order here matters: it dictates in which order translation units get concatenated in
// the final output, which in turn affects where the bootstrap block lands and how the shared
// label counter advances across files, so a Program is kept as an ordered slice rather than a
// map (whose iteration order Go intentionally randomizes).
type Program []Module

// A VM Module is a named translation unit: a linear list of VM operations/instructions plus
// the base name of the file it came from (used to mangle 'static' segment variables).
type Module struct {
	Name       string      // The base name of the originating .vm file (sans extension)
	Operations []Operation // The linear list of operations found in that file, in source order
}

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Branching

// In memory representation of a label declaration statement for the VM language.
//
// Declares a jump target reachable from 'goto'/'if-goto' statements further down (or up) the
// same translation unit. The Lowerer namespaces this to the enclosing function (if any) so
// that two functions can freely reuse the same label name without colliding.
type LabelDecl struct {
	Name string // The symbol chosen by the user for the label
}

// In memory representation of a jump statement ('goto' or 'if-goto') for the VM language.
type GotoOp struct {
	Jump  JumpType // Whether the jump is unconditional ('goto') or conditional ('if-goto')
	Label string   // The target label's symbol, as declared by a 'LabelDecl'
}

type JumpType string // Enum to manage the two flavors of jump available in the VM language

const (
	Unconditional JumpType = "goto"    // Always taken
	Conditional   JumpType = "if-goto" // Taken only if the popped stack value is non-zero
)

// ----------------------------------------------------------------------------
// Functions

// In memory representation of a function declaration ('function') for the VM language.
//
// Marks the entry point of a callable unit and how many local variables it needs zeroed
// out on entry, per the standard nand2tetris calling convention.
type FuncDecl struct {
	Name   string // The fully qualified function name (e.g. 'Math.multiply')
	NLocal uint8  // The number of local variables to allocate (and zero) on entry
}

// In memory representation of a function call ('call') for the VM language.
type FuncCallOp struct {
	Name  string // The fully qualified callee name
	NArgs uint8  // The number of arguments already pushed by the caller
}

// In memory representation of a function return ('return') for the VM language.
type ReturnOp struct{}
