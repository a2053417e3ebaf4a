package classfile

import (
	"encoding/binary"
	"fmt"
)

// Kind classifies an instruction by what the analysis needs from it.
type Kind uint8

const (
	// KindOther covers every instruction the analysis ignores,
	// including goto, jsr, invokedynamic and returns.
	KindOther Kind = iota
	// KindBranch is a conditional branch (ifeq..if_acmpne, ifnull, ifnonnull).
	KindBranch
	// KindSwitch is a tableswitch or lookupswitch.
	KindSwitch
	// KindInvoke is invokevirtual, invokespecial, invokestatic or invokeinterface.
	KindInvoke
	// KindField is getstatic, putstatic, getfield or putfield.
	KindField
	// KindType is new, anewarray, checkcast or instanceof.
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindBranch:
		return "branch"
	case KindSwitch:
		return "switch"
	case KindInvoke:
		return "invoke"
	case KindField:
		return "field"
	case KindType:
		return "type"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

const (
	opIinc            = 0x84
	opIfeq            = 0x99
	opIfAcmpne        = 0xa6
	opRet             = 0xa9
	opTableswitch     = 0xaa
	opLookupswitch    = 0xab
	opGetstatic       = 0xb2
	opPutfield        = 0xb5
	opInvokevirtual   = 0xb6
	opInvokeinterface = 0xb9
	opInvokedynamic   = 0xba
	opNew             = 0xbb
	opNewarray        = 0xbc
	opAnewarray       = 0xbd
	opCheckcast       = 0xc0
	opInstanceof      = 0xc1
	opWide            = 0xc4
	opMultianewarray  = 0xc5
	opIfnull          = 0xc6
	opIfnonnull       = 0xc7
	opGotoW           = 0xc8
	opJsrW            = 0xc9
)

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	// Offset is the position of the opcode within the method's code.
	Offset int
	Opcode uint8
	Kind   Kind

	// Index is the constant pool operand of invoke, field and type
	// instructions.
	Index uint16

	// Cases is the number of distinct switch targets other than the
	// default target.
	Cases int
}

func kindOf(op uint8) Kind {
	switch {
	case op >= opIfeq && op <= opIfAcmpne, op == opIfnull, op == opIfnonnull:
		return KindBranch
	case op == opTableswitch, op == opLookupswitch:
		return KindSwitch
	case op >= opGetstatic && op <= opPutfield:
		return KindField
	case op >= opInvokevirtual && op <= opInvokeinterface:
		return KindInvoke
	case op == opNew, op == opAnewarray, op == opCheckcast, op == opInstanceof:
		return KindType
	}
	return KindOther
}

// fixedLength returns the encoded length of op including operands, 0 for
// the variable-length tableswitch, lookupswitch and wide, and -1 for
// reserved or unassigned opcodes.
func fixedLength(op uint8) int {
	switch {
	case op <= 0x0f: // nop, constants
		return 1
	case op == 0x10, op == 0x12: // bipush, ldc
		return 2
	case op == 0x11, op == 0x13, op == 0x14: // sipush, ldc_w, ldc2_w
		return 3
	case op >= 0x15 && op <= 0x19: // loads with a local index
		return 2
	case op >= 0x1a && op <= 0x35:
		return 1
	case op >= 0x36 && op <= 0x3a: // stores with a local index
		return 2
	case op >= 0x3b && op <= 0x83:
		return 1
	case op == opIinc:
		return 3
	case op >= 0x85 && op <= 0x98:
		return 1
	case op >= opIfeq && op <= 0xa8: // conditional branches, goto, jsr
		return 3
	case op == opRet:
		return 2
	case op == opTableswitch, op == opLookupswitch, op == opWide:
		return 0
	case op >= 0xac && op <= 0xb1: // returns
		return 1
	case op >= opGetstatic && op <= 0xb8:
		return 3
	case op == opInvokeinterface, op == opInvokedynamic:
		return 5
	case op == opNew, op == opAnewarray, op == opCheckcast, op == opInstanceof:
		return 3
	case op == opNewarray:
		return 2
	case op == 0xbe, op == 0xbf, op == 0xc2, op == 0xc3: // arraylength, athrow, monitors
		return 1
	case op == opMultianewarray:
		return 4
	case op == opIfnull, op == opIfnonnull:
		return 3
	case op == opGotoW, op == opJsrW:
		return 5
	}
	return -1
}

// walkCode decodes code front to back and calls fn for every
// instruction. base is the absolute offset of code in the class file and
// is used only for error reporting.
func walkCode(code []byte, base int, fn func(Instruction) error) error {
	for pc := 0; pc < len(code); {
		in, n, err := decodeInstruction(code, pc)
		if err != nil {
			return &DecodeError{Offset: base + pc, Err: err}
		}
		if err := fn(in); err != nil {
			return &DecodeError{Offset: base + pc, Err: err}
		}
		pc += n
	}
	return nil
}

func decodeInstruction(code []byte, pc int) (Instruction, int, error) {
	op := code[pc]
	in := Instruction{Offset: pc, Opcode: op, Kind: kindOf(op)}

	n := fixedLength(op)
	switch {
	case n < 0:
		return in, 0, fmt.Errorf("%w: reserved opcode 0x%02x", ErrMalformed, op)
	case op == opWide:
		if pc+1 >= len(code) {
			return in, 0, fmt.Errorf("%w: wide at end of code", ErrTruncated)
		}
		n = 4
		if code[pc+1] == opIinc {
			n = 6
		}
	case op == opTableswitch, op == opLookupswitch:
		return decodeSwitch(code, pc, in)
	}

	if pc+n > len(code) {
		return in, 0, fmt.Errorf("%w: opcode 0x%02x needs %d bytes", ErrTruncated, op, n)
	}
	switch in.Kind {
	case KindInvoke, KindField, KindType:
		in.Index = binary.BigEndian.Uint16(code[pc+1:])
	}
	return in, n, nil
}

// decodeSwitch decodes a tableswitch or lookupswitch. Operands start at
// the next 4-byte boundary measured from the start of the code array.
func decodeSwitch(code []byte, pc int, in Instruction) (Instruction, int, error) {
	p := int64((pc + 4) &^ 3)
	end := int64(len(code))

	s4 := func(at int64) int32 {
		return int32(binary.BigEndian.Uint32(code[at:]))
	}
	truncated := func() (Instruction, int, error) {
		return in, 0, fmt.Errorf("%w: switch at %d", ErrTruncated, pc)
	}

	header := int64(12) // default, low, high
	if in.Opcode == opLookupswitch {
		header = 8 // default, npairs
	}
	if p+header > end {
		return truncated()
	}
	def := s4(p)

	var targets []int32

	var next int64
	if in.Opcode == opTableswitch {
		low, high := s4(p+4), s4(p+8)
		if high < low {
			return in, 0, fmt.Errorf("%w: tableswitch high %d < low %d", ErrMalformed, high, low)
		}
		count := int64(high) - int64(low) + 1
		next = p + 12 + 4*count
		if next > end {
			return truncated()
		}
		targets = make([]int32, 0, count)
		for i := int64(0); i < count; i++ {
			targets = append(targets, s4(p+12+4*i))
		}
	} else {
		npairs := s4(p + 4)
		if npairs < 0 {
			return in, 0, fmt.Errorf("%w: lookupswitch npairs %d", ErrMalformed, npairs)
		}
		next = p + 8 + 8*int64(npairs)
		if next > end {
			return truncated()
		}
		targets = make([]int32, 0, npairs)
		for i := int64(0); i < int64(npairs); i++ {
			targets = append(targets, s4(p+8+8*i+4))
		}
	}

	seen := make(map[int32]struct{}, len(targets))
	for _, t := range targets {
		if t != def {
			seen[t] = struct{}{}
		}
	}
	in.Cases = len(seen)
	return in, int(next) - pc, nil
}
