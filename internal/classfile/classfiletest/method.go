package classfiletest

import (
	"bytes"
	"encoding/binary"
)

// Method accumulates the bytecode of one method. Branch targets are not
// meaningful; the encoding is only guaranteed to have correct lengths.
type Method struct {
	b           *Builder
	name, desc  string
	access      uint16
	hasCode     bool
	code        []byte
	annotations []string
}

// Native marks the method native and removes its body.
func (m *Method) Native() *Method { m.access |= 0x0100; m.hasCode = false; return m }

// Abstract marks the method abstract and removes its body.
func (m *Method) Abstract() *Method { m.access |= 0x0400; m.hasCode = false; return m }

// Annotate adds a RuntimeVisibleAnnotations entry on the method.
func (m *Method) Annotate(desc string) *Method {
	m.annotations = append(m.annotations, desc)
	return m
}

// Op appends raw bytes.
func (m *Method) Op(raw ...byte) *Method { m.code = append(m.code, raw...); return m }

// Branches appends n ifeq instructions.
func (m *Method) Branches(n int) *Method {
	for i := 0; i < n; i++ {
		m.code = append(m.code, 0x99, 0x00, 0x03)
	}
	return m
}

// NullChecks appends n ifnull instructions.
func (m *Method) NullChecks(n int) *Method {
	for i := 0; i < n; i++ {
		m.code = append(m.code, 0xc6, 0x00, 0x03)
	}
	return m
}

// Goto appends an unconditional goto.
func (m *Method) Goto() *Method { return m.Op(0xa7, 0x00, 0x03) }

// WideIinc appends wide iinc, the six-byte wide form.
func (m *Method) WideIinc() *Method { return m.Op(0xc4, 0x84, 0x01, 0x00, 0x00, 0x01) }

// WideLoad appends wide iload, the four-byte wide form.
func (m *Method) WideLoad() *Method { return m.Op(0xc4, 0x15, 0x01, 0x00) }

// InvokeVirtual appends invokevirtual owner.name desc.
func (m *Method) InvokeVirtual(owner, name, desc string) *Method {
	return m.op3(0xb6, m.b.pool.ref(10, owner, name, desc))
}

// InvokeSpecial appends invokespecial owner.name desc.
func (m *Method) InvokeSpecial(owner, name, desc string) *Method {
	return m.op3(0xb7, m.b.pool.ref(10, owner, name, desc))
}

// InvokeStatic appends invokestatic owner.name desc.
func (m *Method) InvokeStatic(owner, name, desc string) *Method {
	return m.op3(0xb8, m.b.pool.ref(10, owner, name, desc))
}

// InvokeInterface appends invokeinterface owner.name desc.
func (m *Method) InvokeInterface(owner, name, desc string) *Method {
	idx := m.b.pool.ref(11, owner, name, desc)
	m.op3(0xb9, idx)
	m.code = append(m.code, 1, 0)
	return m
}

// InvokeDynamic appends an invokedynamic whose operand points at a
// NameAndType; decoders skip it.
func (m *Method) InvokeDynamic(name, desc string) *Method {
	m.op3(0xba, m.b.pool.nameAndType(name, desc))
	m.code = append(m.code, 0, 0)
	return m
}

// GetField appends getfield owner.name.
func (m *Method) GetField(owner, name, desc string) *Method {
	return m.op3(0xb4, m.b.pool.ref(9, owner, name, desc))
}

// PutStatic appends putstatic owner.name.
func (m *Method) PutStatic(owner, name, desc string) *Method {
	return m.op3(0xb3, m.b.pool.ref(9, owner, name, desc))
}

// New appends new class.
func (m *Method) New(class string) *Method { return m.op3(0xbb, m.b.pool.class(class)) }

// ANewArray appends anewarray class.
func (m *Method) ANewArray(class string) *Method { return m.op3(0xbd, m.b.pool.class(class)) }

// CheckCast appends checkcast class.
func (m *Method) CheckCast(class string) *Method { return m.op3(0xc0, m.b.pool.class(class)) }

// InstanceOf appends instanceof class.
func (m *Method) InstanceOf(class string) *Method { return m.op3(0xc1, m.b.pool.class(class)) }

// TableSwitch appends a tableswitch with keys 0..len(targets)-1.
func (m *Method) TableSwitch(def int32, targets ...int32) *Method {
	m.code = append(m.code, 0xaa)
	m.pad()
	m.s4(def)
	m.s4(0)
	m.s4(int32(len(targets) - 1))
	for _, t := range targets {
		m.s4(t)
	}
	return m
}

// LookupSwitch appends a lookupswitch with keys 0..len(targets)-1.
func (m *Method) LookupSwitch(def int32, targets ...int32) *Method {
	m.code = append(m.code, 0xab)
	m.pad()
	m.s4(def)
	m.s4(int32(len(targets)))
	for i, t := range targets {
		m.s4(int32(i))
		m.s4(t)
	}
	return m
}

func (m *Method) pad() {
	for len(m.code)%4 != 0 {
		m.code = append(m.code, 0)
	}
}

func (m *Method) s4(v int32) {
	m.code = binary.BigEndian.AppendUint32(m.code, uint32(v))
}

func (m *Method) op3(op byte, idx uint16) *Method {
	m.code = append(m.code, op)
	m.code = binary.BigEndian.AppendUint16(m.code, idx)
	return m
}

func (m *Method) encode(w *bytes.Buffer) {
	p := m.b.pool
	u2(w, m.access)
	u2(w, p.utf8(m.name))
	u2(w, p.utf8(m.desc))

	var attrs [][]byte
	if m.hasCode {
		code := append(append([]byte(nil), m.code...), 0xb1)
		var a bytes.Buffer
		u2(&a, p.utf8("Code"))
		u4(&a, uint32(2+2+4+len(code)+2+2))
		u2(&a, 8) // max_stack
		u2(&a, 8) // max_locals
		u4(&a, uint32(len(code)))
		a.Write(code)
		u2(&a, 0) // exception_table_length
		u2(&a, 0) // attributes_count
		attrs = append(attrs, a.Bytes())
	}
	if len(m.annotations) > 0 {
		attrs = append(attrs, m.b.annotationAttr("RuntimeVisibleAnnotations", m.annotations))
	}
	u2(w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
}
