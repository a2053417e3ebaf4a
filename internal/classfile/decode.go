package classfile

import (
	"fmt"
	"sort"
)

const (
	magic = 0xCAFEBABE

	// MinMajorVersion and MaxMajorVersion bound the accepted class file
	// versions (JDK 1.1 through JDK 26).
	MinMajorVersion = 45
	MaxMajorVersion = 70

	accFinal     = 0x0010
	accNative    = 0x0100
	accInterface = 0x0200
	accAbstract  = 0x0400

	// maxElementDepth bounds nesting of annotation element values.
	maxElementDepth = 64
)

const (
	attrCode                 = "Code"
	attrVisibleAnnotations   = "RuntimeVisibleAnnotations"
	attrInvisibleAnnotations = "RuntimeInvisibleAnnotations"
)

// decoder carries the state of one Decode call.
type decoder struct {
	pool        constantPool
	methodRefs  map[string]struct{}
	fieldRefs   map[string]struct{}
	annotations map[string]struct{}
}

// Decode parses one class file. It performs no I/O and touches no shared
// state, so it may be called concurrently. On failure the returned error
// is a *DecodeError and no Record is produced.
func Decode(data []byte) (*Record, error) {
	r := newReader(data, 0)

	if m := r.u4(); r.err != nil {
		return nil, r.err
	} else if m != magic {
		return nil, errAt(0, ErrBadMagic, "got 0x%08X", m)
	}
	minor := r.u2()
	major := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if major < MinMajorVersion || major > MaxMajorVersion {
		return nil, errAt(6, ErrUnsupportedVersion, "%d.%d", major, minor)
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{
		pool:        pool,
		methodRefs:  make(map[string]struct{}),
		fieldRefs:   make(map[string]struct{}),
		annotations: make(map[string]struct{}),
	}

	rec := &Record{
		MajorVersion:     int(major),
		MinorVersion:     int(minor),
		MethodComplexity: make(map[string]int),
	}

	headerAt := r.pos()
	access := r.u2()
	thisIdx := r.u2()
	superIdx := r.u2()
	ifaceCount := int(r.u2())
	ifaceIdx := make([]uint16, 0, ifaceCount)
	for i := 0; i < ifaceCount; i++ {
		ifaceIdx = append(ifaceIdx, r.u2())
	}
	if r.err != nil {
		return nil, r.err
	}

	rec.IsFinal = access&accFinal != 0
	rec.IsInterface = access&accInterface != 0
	rec.IsAbstract = access&accAbstract != 0

	if rec.Name, err = pool.class(thisIdx); err != nil {
		return nil, &DecodeError{Offset: headerAt + 2, Err: err}
	}
	if superIdx != 0 {
		if rec.SuperClass, err = pool.class(superIdx); err != nil {
			return nil, &DecodeError{Offset: headerAt + 4, Err: err}
		}
	}
	ifaces := make(map[string]struct{}, ifaceCount)
	for i, idx := range ifaceIdx {
		name, err := pool.class(idx)
		if err != nil {
			return nil, &DecodeError{Offset: headerAt + 8 + 2*i, Err: err}
		}
		ifaces[name] = struct{}{}
	}
	rec.Interfaces = sortedKeys(ifaces)

	fieldCount := int(r.u2())
	for i := 0; i < fieldCount; i++ {
		if _, _, _, err := d.member(r, nil); err != nil {
			return nil, err
		}
	}
	rec.FieldCount = fieldCount

	methodCount := int(r.u2())
	var native []string
	for i := 0; i < methodCount; i++ {
		complexity := 1
		access, name, desc, err := d.member(r, &complexity)
		if err != nil {
			return nil, err
		}
		key := name + desc
		rec.MethodComplexity[key] = complexity
		if access&accNative != 0 {
			native = append(native, key)
		}
	}
	rec.MethodCount = methodCount
	sort.Strings(native)
	rec.NativeMethods = native

	if err := d.attributes(r, func(string, []byte, int) error { return nil }); err != nil {
		return nil, err
	}

	rec.MethodRefs = sortedKeys(d.methodRefs)
	rec.FieldRefs = sortedKeys(d.fieldRefs)
	rec.Annotations = sortedKeys(d.annotations)
	return rec, nil
}

// member reads one field_info or method_info. When complexity is non-nil
// the member is a method and its Code attribute is walked.
func (d *decoder) member(r *reader, complexity *int) (access uint16, name, desc string, err error) {
	at := r.pos()
	access = r.u2()
	nameIdx := r.u2()
	descIdx := r.u2()
	if r.err != nil {
		return 0, "", "", r.err
	}
	if name, err = d.pool.utf8(nameIdx); err != nil {
		return 0, "", "", &DecodeError{Offset: at + 2, Err: err}
	}
	if desc, err = d.pool.utf8(descIdx); err != nil {
		return 0, "", "", &DecodeError{Offset: at + 4, Err: err}
	}

	err = d.attributes(r, func(attr string, body []byte, base int) error {
		if attr == attrCode && complexity != nil {
			c, err := d.code(body, base)
			if err != nil {
				return err
			}
			*complexity = c
		}
		return nil
	})
	return access, name, desc, err
}

// attributes reads an attribute table. Annotation attributes are
// consumed here; every attribute is also passed to fn.
func (d *decoder) attributes(r *reader, fn func(name string, body []byte, base int) error) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		at := r.pos()
		nameIdx := r.u2()
		length := r.u4()
		if r.err != nil {
			return r.err
		}
		if uint64(length) > uint64(len(r.buf)-r.off) {
			return errAt(at+2, ErrTruncated, "attribute length %d", length)
		}
		base := r.pos()
		body := r.bytes(int(length))

		name, err := d.pool.utf8(nameIdx)
		if err != nil {
			return &DecodeError{Offset: at, Err: err}
		}
		switch name {
		case attrVisibleAnnotations, attrInvisibleAnnotations:
			if err := d.annotationTable(body, base); err != nil {
				return err
			}
		}
		if err := fn(name, body, base); err != nil {
			return err
		}
	}
	return r.err
}

// code walks a Code attribute body, recording references, and returns
// the method's cyclomatic complexity.
func (d *decoder) code(body []byte, base int) (int, error) {
	r := newReader(body, base)
	r.skip(4) // max_stack, max_locals
	length := r.u4()
	if r.err != nil {
		return 0, r.err
	}
	if uint64(length) > uint64(len(body)-r.off) {
		return 0, errAt(base+4, ErrTruncated, "code length %d", length)
	}
	codeAt := r.pos()
	code := r.bytes(int(length))

	complexity := 1
	err := walkCode(code, codeAt, func(in Instruction) error {
		switch in.Kind {
		case KindBranch:
			complexity++
		case KindSwitch:
			complexity += in.Cases
		case KindInvoke:
			owner, name, desc, err := d.pool.member(in.Index)
			if err != nil {
				return err
			}
			d.methodRefs[owner+"."+name+desc] = struct{}{}
		case KindField:
			owner, name, _, err := d.pool.member(in.Index)
			if err != nil {
				return err
			}
			d.fieldRefs[owner+"."+name] = struct{}{}
		case KindType:
			class, err := d.pool.class(in.Index)
			if err != nil {
				return err
			}
			d.methodRefs[TypeRefPrefix+class] = struct{}{}
		case KindOther:
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return complexity, nil
}

// annotationTable reads a Runtime(In)VisibleAnnotations body and records
// the type descriptor of each top-level annotation.
func (d *decoder) annotationTable(body []byte, base int) error {
	r := newReader(body, base)
	count := int(r.u2())
	for i := 0; i < count; i++ {
		desc, err := d.annotation(r, 0)
		if err != nil {
			return err
		}
		d.annotations[desc] = struct{}{}
	}
	return r.err
}

func (d *decoder) annotation(r *reader, depth int) (string, error) {
	at := r.pos()
	typeIdx := r.u2()
	pairs := int(r.u2())
	for j := 0; j < pairs && r.err == nil; j++ {
		r.u2() // element_name_index
		if err := d.skipElementValue(r, depth+1); err != nil {
			return "", err
		}
	}
	if r.err != nil {
		return "", r.err
	}
	desc, err := d.pool.utf8(typeIdx)
	if err != nil {
		return "", &DecodeError{Offset: at, Err: err}
	}
	return desc, nil
}

func (d *decoder) skipElementValue(r *reader, depth int) error {
	at := r.pos()
	if depth > maxElementDepth {
		return errAt(at, ErrMalformed, "annotation nesting deeper than %d", maxElementDepth)
	}
	tag := r.u1()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		r.skip(2)
	case 'e':
		r.skip(4)
	case '@':
		_, err := d.annotation(r, depth)
		return err
	case '[':
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			if err := d.skipElementValue(r, depth+1); err != nil {
				return err
			}
		}
	default:
		if r.err == nil {
			return errAt(at, ErrMalformed, "element value tag %q", rune(tag))
		}
	}
	return r.err
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer for log output.
func (r *Record) String() string {
	return fmt.Sprintf("%s (%d methods, %d fields)", r.Name, r.MethodCount, r.FieldCount)
}
