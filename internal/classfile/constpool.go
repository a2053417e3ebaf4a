package classfile

import "fmt"

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// cpEntry is one constant pool slot. a and b hold the index operands of
// reference entries; str holds the decoded text of Utf8 entries.
type cpEntry struct {
	tag uint8
	a   uint16
	b   uint16
	str string
}

// constantPool is indexed from 1; slot 0 and the upper half of Long and
// Double entries are left with tag 0.
type constantPool []cpEntry

func readConstantPool(r *reader) (constantPool, error) {
	start := r.pos()
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, errAt(start, ErrMalformed, "constant pool count is zero")
	}

	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		at := r.pos()
		tag := r.u1()
		e := cpEntry{tag: tag}

		switch tag {
		case tagUtf8:
			n := int(r.u2())
			raw := r.bytes(n)
			if r.err != nil {
				return nil, r.err
			}
			s, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, errAt(at, ErrMalformed, "constant #%d: %v", i, err)
			}
			e.str = s
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			if r.err != nil {
				return nil, r.err
			}
			if i+1 >= count {
				return nil, errAt(at, ErrMalformed, "constant #%d: 8-byte constant in last slot", i)
			}
			pool[i] = e
			i++
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType,
			tagDynamic, tagInvokeDynamic:
			e.a = r.u2()
			e.b = r.u2()
		case tagMethodHandle:
			r.u1()
			e.a = r.u2()
		default:
			if r.err == nil {
				return nil, errAt(at, ErrMalformed, "constant #%d: unknown tag %d", i, tag)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = e
	}
	return pool, nil
}

func (p constantPool) entry(i uint16, want ...uint8) (cpEntry, error) {
	if int(i) <= 0 || int(i) >= len(p) {
		return cpEntry{}, fmt.Errorf("%w: constant index %d out of range", ErrMalformed, i)
	}
	e := p[i]
	for _, t := range want {
		if e.tag == t {
			return e, nil
		}
	}
	return cpEntry{}, fmt.Errorf("%w: constant #%d has tag %d, want %v", ErrMalformed, i, e.tag, want)
}

func (p constantPool) utf8(i uint16) (string, error) {
	e, err := p.entry(i, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// class resolves a Class constant to its internal name or array
// descriptor.
func (p constantPool) class(i uint16) (string, error) {
	e, err := p.entry(i, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.a)
}

func (p constantPool) nameAndType(i uint16) (name, desc string, err error) {
	e, err := p.entry(i, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(e.a); err != nil {
		return "", "", err
	}
	if desc, err = p.utf8(e.b); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// member resolves a Fieldref, Methodref or InterfaceMethodref.
func (p constantPool) member(i uint16) (owner, name, desc string, err error) {
	e, err := p.entry(i, tagFieldref, tagMethodref, tagInterfaceMethodref)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = p.class(e.a); err != nil {
		return "", "", "", err
	}
	if name, desc, err = p.nameAndType(e.b); err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}
