// Package classfile decodes compiled JVM class files into Records that
// carry per-method cyclomatic complexity and the method, field, and type
// references made by the class's bytecode.
package classfile

// Record is the structural summary of one class file. A Record is never
// modified after Decode returns it and may be shared between goroutines.
type Record struct {
	// Name is the internal (slash-separated) class name.
	Name string `json:"name"`

	// SuperClass is empty for java/lang/Object and module-info.
	SuperClass string `json:"super_class,omitempty"`

	// Interfaces lists implemented interface names, sorted and unique.
	Interfaces []string `json:"interfaces"`

	// MethodRefs holds "owner.name+descriptor" for every invoke
	// instruction and "TYPE:<class-or-array>" for every new, anewarray,
	// checkcast and instanceof. Sorted and unique.
	MethodRefs []string `json:"method_refs"`

	// FieldRefs holds "owner.name" for every field access. Sorted and unique.
	FieldRefs []string `json:"field_refs"`

	// Annotations holds annotation type descriptors found on the class,
	// its fields and its methods. Sorted and unique.
	Annotations []string `json:"annotations"`

	// MethodComplexity maps "name+descriptor" to cyclomatic complexity.
	// Every value is at least 1.
	MethodComplexity map[string]int `json:"method_complexity"`

	MethodCount int `json:"method_count"`
	FieldCount  int `json:"field_count"`

	IsAbstract  bool `json:"is_abstract"`
	IsInterface bool `json:"is_interface"`
	IsFinal     bool `json:"is_final"`

	MajorVersion int `json:"major_version"`
	MinorVersion int `json:"minor_version"`

	// NativeMethods lists the keys of methods declared native, sorted.
	NativeMethods []string `json:"native_methods"`
}

// TotalComplexity returns the sum of all method complexities.
func (r *Record) TotalComplexity() int {
	total := 0
	for _, c := range r.MethodComplexity {
		total += c
	}
	return total
}

// AverageMethodComplexity returns TotalComplexity divided by
// MethodCount, or 0 for a class without methods.
func (r *Record) AverageMethodComplexity() float64 {
	if r.MethodCount == 0 {
		return 0
	}
	return float64(r.TotalComplexity()) / float64(r.MethodCount)
}
