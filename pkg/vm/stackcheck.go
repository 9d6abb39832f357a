package vm

import (
	"fmt"

	"hacktoolchain/pkg/utils"
)

// CheckStackDepth simulates a Module's operand stack traffic and reports the first operation
// that would pop from an empty stack, without caring about the values actually pushed.
//
// Only operations that touch the VM operand stack are modeled: MemoryOp push/pop, the nine
// ArithmeticOp variants, the conditional pop implied by 'if-goto', and 'call', which consumes
// its NArgs arguments and leaves the callee's return value in their place. Function
// declarations, 'return' and label declarations are not modeled.
func CheckStackDepth(module Module) error {
	stack := utils.NewStack[struct{}]()

	pop := func(index int) error {
		if _, err := stack.Pop(); err != nil {
			return fmt.Errorf("module %q, operation #%d: stack underflow", module.Name, index)
		}
		return nil
	}
	push := func() { stack.Push(struct{}{}) }

	for i, op := range module.Operations {
		switch tOp := op.(type) {
		case MemoryOp:
			switch tOp.Operation {
			case Push:
				push()
			case Pop:
				if err := pop(i); err != nil {
					return err
				}
			}

		case ArithmeticOp:
			switch tOp.Operation {
			case Neg, Not:
				if err := pop(i); err != nil {
					return err
				}
				push()
			case Add, Sub, And, Or, Eq, Gt, Lt:
				if err := pop(i); err != nil {
					return err
				}
				if err := pop(i); err != nil {
					return err
				}
				push()
			}

		case GotoOp:
			if tOp.Jump == Conditional {
				if err := pop(i); err != nil {
					return err
				}
			}

		case FuncCallOp:
			for k := uint8(0); k < tOp.NArgs; k++ {
				if err := pop(i); err != nil {
					return err
				}
			}
			push()
		}
	}

	return nil
}
