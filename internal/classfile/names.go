package classfile

import "strings"

// TypeRefPrefix marks MethodRefs entries produced by type instructions.
const TypeRefPrefix = "TYPE:"

// DefaultPackage names the package of classes declared without one.
const DefaultPackage = "default"

// PackageOf returns the dotted package name of an internal class name,
// or DefaultPackage when the name has no package.
func PackageOf(className string) string {
	i := strings.LastIndexByte(className, '/')
	if i < 0 {
		return DefaultPackage
	}
	return strings.ReplaceAll(className[:i], "/", ".")
}

// SimpleName returns the part of an internal class name after the last
// slash.
func SimpleName(className string) string {
	return className[strings.LastIndexByte(className, '/')+1:]
}

// Owner returns the internal name of the class a MethodRefs or FieldRefs
// entry points at. Type markers resolve to the referenced class and array
// types to their element class. Primitive arrays have no owner.
func Owner(ref string) (string, bool) {
	if t, ok := strings.CutPrefix(ref, TypeRefPrefix); ok {
		return elementClass(t)
	}
	i := strings.IndexByte(ref, '.')
	if i <= 0 {
		return "", false
	}
	return elementClass(ref[:i])
}

// elementClass strips array dimensions from a Class constant value.
func elementClass(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if name[0] != '[' {
		return name, true
	}
	elem := strings.TrimLeft(name, "[")
	if len(elem) > 2 && elem[0] == 'L' && elem[len(elem)-1] == ';' {
		return elem[1 : len(elem)-1], true
	}
	return "", false
}
