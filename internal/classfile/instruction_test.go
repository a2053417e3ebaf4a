package classfile

import (
	"errors"
	"testing"
)

// TestFixedLength_CoversOpcodeTable verifies that every assigned opcode
// has a length and every reserved one does not.
func TestFixedLength_CoversOpcodeTable(t *testing.T) {
	for op := 0; op <= 0xff; op++ {
		n := fixedLength(uint8(op))
		assigned := op <= opJsrW
		if assigned && n < 0 {
			t.Errorf("opcode 0x%02x: expected a length, got %d", op, n)
		}
		if !assigned && n >= 0 {
			t.Errorf("opcode 0x%02x: expected reserved, got length %d", op, n)
		}
	}
}

// TestFixedLength_Operands spot-checks operand sizes.
func TestFixedLength_Operands(t *testing.T) {
	tests := []struct {
		op   uint8
		want int
	}{
		{0x00, 1}, // nop
		{0x10, 2}, // bipush
		{0x11, 3}, // sipush
		{0x12, 2}, // ldc
		{0x14, 3}, // ldc2_w
		{0x19, 2}, // aload
		{0x2a, 1}, // aload_0
		{0x3a, 2}, // astore
		{opIinc, 3},
		{0xa7, 3}, // goto
		{opRet, 2},
		{0xb1, 1}, // return
		{opInvokeinterface, 5},
		{opInvokedynamic, 5},
		{opNewarray, 2},
		{opMultianewarray, 4},
		{opGotoW, 5},
		{opTableswitch, 0},
		{opWide, 0},
	}
	for _, tt := range tests {
		if got := fixedLength(tt.op); got != tt.want {
			t.Errorf("opcode 0x%02x: expected length %d, got %d", tt.op, tt.want, got)
		}
	}
}

// TestKindOf verifies instruction classification.
func TestKindOf(t *testing.T) {
	tests := []struct {
		op   uint8
		want Kind
	}{
		{opIfeq, KindBranch},
		{opIfAcmpne, KindBranch},
		{opIfnull, KindBranch},
		{opIfnonnull, KindBranch},
		{0xa7, KindOther}, // goto
		{0xa8, KindOther}, // jsr
		{opTableswitch, KindSwitch},
		{opLookupswitch, KindSwitch},
		{opGetstatic, KindField},
		{opPutfield, KindField},
		{opInvokevirtual, KindInvoke},
		{opInvokeinterface, KindInvoke},
		{opInvokedynamic, KindOther},
		{opNew, KindType},
		{opAnewarray, KindType},
		{opCheckcast, KindType},
		{opInstanceof, KindType},
		{opNewarray, KindOther},
		{opMultianewarray, KindOther},
	}
	for _, tt := range tests {
		if got := kindOf(tt.op); got != tt.want {
			t.Errorf("opcode 0x%02x: expected %v, got %v", tt.op, tt.want, got)
		}
	}
}

// TestDecodeInstruction_SwitchPadding verifies the switch length for each
// alignment of the opcode.
func TestDecodeInstruction_SwitchPadding(t *testing.T) {
	for pc := 0; pc < 4; pc++ {
		code := make([]byte, pc)
		code = append(code, opLookupswitch)
		for len(code)%4 != 0 {
			code = append(code, 0)
		}
		// default=0, npairs=1, key=0, offset=12
		code = append(code, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 12)

		in, n, err := decodeInstruction(code, pc)
		if err != nil {
			t.Fatalf("pc %d: unexpected error %v", pc, err)
		}
		if pc+n != len(code) {
			t.Errorf("pc %d: expected instruction to end at %d, ends at %d", pc, len(code), pc+n)
		}
		if in.Cases != 1 {
			t.Errorf("pc %d: expected 1 case, got %d", pc, in.Cases)
		}
	}
}

// TestWalkCode_ReportsAbsoluteOffset verifies error offsets include the
// code's position in the file.
func TestWalkCode_ReportsAbsoluteOffset(t *testing.T) {
	code := []byte{0x00, 0x00, 0xfe}
	err := walkCode(code, 100, func(Instruction) error { return nil })

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Offset != 102 {
		t.Errorf("expected offset 102, got %d", de.Offset)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

// TestDecodeModifiedUTF8 verifies the NUL and surrogate encodings.
func TestDecodeModifiedUTF8(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    string
		wantErr bool
	}{
		{"ascii", []byte("java/lang/Object"), "java/lang/Object", false},
		{"encoded nul", []byte{'a', 0xC0, 0x80, 'b'}, "a\x00b", false},
		{"two byte", []byte{0xC3, 0xA9}, "é", false},
		{"surrogate pair", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "\U0001F600", false},
		{"raw nul", []byte{'a', 0x00}, "", true},
		{"truncated sequence", []byte{0xE2, 0x82}, "", true},
		{"four byte form", []byte{0xF0, 0x9F, 0x98, 0x80}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeModifiedUTF8(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
