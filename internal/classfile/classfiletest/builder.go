// Package classfiletest assembles small but well-formed class files for
// tests of the decoder and of everything built on top of it.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Class access flags understood by Builder.Access.
const (
	AccPublic    = 0x0001
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// Builder assembles one class file. Methods return the receiver so
// calls can be chained.
type Builder struct {
	name       string
	super      string
	access     uint16
	major      uint16
	interfaces []string
	fields     []*field
	methods    []*Method
	visible    []string
	invisible  []string
	pool       *pool
}

type field struct {
	name, desc  string
	annotations []string
}

// New starts a public class named name (internal form) extending
// java/lang/Object, targeting Java 17.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		super:  "java/lang/Object",
		access: AccPublic | AccSuper,
		major:  61,
		pool:   newPool(),
	}
}

// Super sets the superclass. An empty name leaves super_class at 0.
func (b *Builder) Super(name string) *Builder { b.super = name; return b }

// Version sets the major version.
func (b *Builder) Version(major uint16) *Builder { b.major = major; return b }

// Access replaces the class access flags.
func (b *Builder) Access(flags uint16) *Builder { b.access = flags; return b }

// Interfaces appends implemented interfaces.
func (b *Builder) Interfaces(names ...string) *Builder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Annotate adds a RuntimeVisibleAnnotations entry on the class.
func (b *Builder) Annotate(desc string) *Builder { b.visible = append(b.visible, desc); return b }

// AnnotateInvisible adds a RuntimeInvisibleAnnotations entry on the class.
func (b *Builder) AnnotateInvisible(desc string) *Builder {
	b.invisible = append(b.invisible, desc)
	return b
}

// Field declares a field with optional annotations.
func (b *Builder) Field(name, desc string, annotations ...string) *Builder {
	b.fields = append(b.fields, &field{name: name, desc: desc, annotations: annotations})
	return b
}

// LongConstant places a two-slot Long constant in the pool.
func (b *Builder) LongConstant(v int64) *Builder {
	enc := make([]byte, 9)
	enc[0] = 5
	binary.BigEndian.PutUint64(enc[1:], uint64(v))
	b.pool.add(fmt.Sprintf("J:%d", v), enc, 2)
	return b
}

// Utf8Constant places an arbitrary Utf8 constant in the pool.
func (b *Builder) Utf8Constant(s string) *Builder { b.pool.utf8(s); return b }

// Method declares a public method with a body that ends in return.
// Instructions are appended through the returned Method.
func (b *Builder) Method(name, desc string) *Method {
	m := &Method{b: b, name: name, desc: desc, access: AccPublic, hasCode: true}
	b.methods = append(b.methods, m)
	return m
}

// Class returns the builder that owns the method, for chaining.
func (m *Method) Class() *Builder { return m.b }

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	p := b.pool

	// Members first so every constant they need is pooled before the
	// pool is written.
	var fields bytes.Buffer
	for _, f := range b.fields {
		u2(&fields, 0x0002)
		u2(&fields, p.utf8(f.name))
		u2(&fields, p.utf8(f.desc))
		if len(f.annotations) > 0 {
			u2(&fields, 1)
			fields.Write(b.annotationAttr("RuntimeVisibleAnnotations", f.annotations))
		} else {
			u2(&fields, 0)
		}
	}

	var methods bytes.Buffer
	for _, m := range b.methods {
		m.encode(&methods)
	}

	var attrs [][]byte
	attrs = append(attrs, b.sourceFileAttr())
	if len(b.visible) > 0 {
		attrs = append(attrs, b.annotationAttr("RuntimeVisibleAnnotations", b.visible))
	}
	if len(b.invisible) > 0 {
		attrs = append(attrs, b.annotationAttr("RuntimeInvisibleAnnotations", b.invisible))
	}

	this := p.class(b.name)
	var super uint16
	if b.super != "" {
		super = p.class(b.super)
	}
	ifaces := make([]uint16, 0, len(b.interfaces))
	for _, name := range b.interfaces {
		ifaces = append(ifaces, p.class(name))
	}

	var out bytes.Buffer
	u4(&out, 0xCAFEBABE)
	u2(&out, 0)
	u2(&out, b.major)
	u2(&out, p.next)
	for _, e := range p.entries {
		out.Write(e)
	}
	u2(&out, b.access)
	u2(&out, this)
	u2(&out, super)
	u2(&out, uint16(len(ifaces)))
	for _, i := range ifaces {
		u2(&out, i)
	}
	u2(&out, uint16(len(b.fields)))
	out.Write(fields.Bytes())
	u2(&out, uint16(len(b.methods)))
	out.Write(methods.Bytes())
	u2(&out, uint16(len(attrs)))
	for _, a := range attrs {
		out.Write(a)
	}
	return out.Bytes()
}

func (b *Builder) sourceFileAttr() []byte {
	simple := b.name[strings.LastIndexByte(b.name, '/')+1:]
	var a bytes.Buffer
	u2(&a, b.pool.utf8("SourceFile"))
	u4(&a, 2)
	u2(&a, b.pool.utf8(simple+".java"))
	return a.Bytes()
}

// annotationAttr encodes each annotation with one array-valued element so
// decoders must walk element values to find the next annotation.
func (b *Builder) annotationAttr(attr string, descs []string) []byte {
	var body bytes.Buffer
	u2(&body, uint16(len(descs)))
	for _, d := range descs {
		u2(&body, b.pool.utf8(d))
		u2(&body, 1)
		u2(&body, b.pool.utf8("value"))
		body.WriteByte('[')
		u2(&body, 2)
		body.WriteByte('s')
		u2(&body, b.pool.utf8("x"))
		body.WriteByte('e')
		u2(&body, b.pool.utf8("Lcom/acme/Level;"))
		u2(&body, b.pool.utf8("HIGH"))
	}
	var a bytes.Buffer
	u2(&a, b.pool.utf8(attr))
	u4(&a, uint32(body.Len()))
	a.Write(body.Bytes())
	return a.Bytes()
}

func u2(w *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func u4(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

// pool is a de-duplicating constant pool under construction.
type pool struct {
	entries [][]byte
	index   map[string]uint16
	next    uint16
}

func newPool() *pool {
	return &pool{index: make(map[string]uint16), next: 1}
}

func (p *pool) add(key string, enc []byte, slots uint16) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	i := p.next
	p.next += slots
	p.index[key] = i
	p.entries = append(p.entries, enc)
	return i
}

func (p *pool) utf8(s string) uint16 {
	raw := encodeModifiedUTF8(s)
	var e bytes.Buffer
	e.WriteByte(1)
	u2(&e, uint16(len(raw)))
	e.Write(raw)
	return p.add("U:"+s, e.Bytes(), 1)
}

func (p *pool) class(name string) uint16 {
	n := p.utf8(name)
	var e bytes.Buffer
	e.WriteByte(7)
	u2(&e, n)
	return p.add("C:"+name, e.Bytes(), 1)
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	var e bytes.Buffer
	e.WriteByte(12)
	u2(&e, n)
	u2(&e, d)
	return p.add("NT:"+name+":"+desc, e.Bytes(), 1)
}

func (p *pool) ref(tag byte, owner, name, desc string) uint16 {
	c, nt := p.class(owner), p.nameAndType(name, desc)
	var e bytes.Buffer
	e.WriteByte(tag)
	u2(&e, c)
	u2(&e, nt)
	return p.add(fmt.Sprintf("R%d:%s.%s%s", tag, owner, name, desc), e.Bytes(), 1)
}

func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u >= 0x01 && u <= 0x7F:
			out = append(out, byte(u))
		case u <= 0x7FF:
			out = append(out, byte(0xC0|u>>6), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}
	return out
}
