package corpus

import (
	"path"
	"strings"
)

// ClassSuffix is the file name suffix of class file entries.
const ClassSuffix = ".class"

// Filter reports whether an entry name (slash-separated, relative to the
// source root) is a class the scan should decode.
//
// Non-class entries are always rejected. Nested classes ('$' in the base
// name) are rejected when excludeNested is set. When include is non-empty
// the name must match one of its patterns; a match in exclude always
// rejects.
func Filter(name string, excludeNested bool, include, exclude []string) bool {
	name = strings.TrimPrefix(name, "/")
	base := path.Base(name)
	if !strings.HasSuffix(base, ClassSuffix) {
		return false
	}
	if excludeNested && strings.Contains(base, "$") {
		return false
	}

	if len(include) > 0 {
		matched := false
		for _, pattern := range include {
			if matchGlob(pattern, name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range exclude {
		if matchGlob(pattern, name) {
			return false
		}
	}
	return true
}

// matchGlob supports path.Match syntax plus two double-star forms:
// "dir/**" matches everything below dir and "**/x" matches x at any
// depth. Patterns without a slash are also tried against the base name.
func matchGlob(pattern, name string) bool {
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if matchGlob(rest, name) {
			return true
		}
		for i := 0; i < len(name); i++ {
			if name[i] == '/' && matchGlob(rest, name[i+1:]) {
				return true
			}
		}
		return false
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if strings.ContainsAny(prefix, "*?[") {
			dir := name
			for dir != "." && dir != "/" && dir != "" {
				if ok, _ := path.Match(prefix, dir); ok {
					return true
				}
				dir = path.Dir(dir)
			}
			return false
		}
		return name == prefix || strings.HasPrefix(name, prefix+"/")
	}

	if ok, err := path.Match(pattern, name); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, err := path.Match(pattern, path.Base(name))
		return err == nil && ok
	}
	return false
}
