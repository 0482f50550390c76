package blueprint

import (
	"errors"
	"fmt"
	"strings"
)

// Load-time structural errors. Each is returned wrapped in a *StructuralError
// that names the offending templates; match with errors.Is.
var (
	ErrEmptyName         = errors.New("template has no name")
	ErrDuplicateName     = errors.New("duplicate template name")
	ErrMissingParent     = errors.New("parent template not found")
	ErrNoRoot            = errors.New("no root template")
	ErrMultipleRoots     = errors.New("multiple root templates")
	ErrCyclicInheritance = errors.New("cyclic inheritance")
	ErrInvalidOperation  = errors.New("invalid attribute operation")
)

// Query-time errors.
var (
	// ErrNotFound reports a name or tag absent from the tree.
	ErrNotFound = errors.New("not found")
	// ErrMalformedValue reports a field value that cannot be interpreted.
	ErrMalformedValue = errors.New("malformed value")
	// ErrForeignObject reports an object that belongs to a different load.
	ErrForeignObject = errors.New("object belongs to a different load")
)

// StructuralError is a fatal load-time error. Names lists the offending
// templates; for a cycle they are in chain order.
type StructuralError struct {
	Kind   error
	Names  []string
	Detail string
}

// Error implements error.
func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString("blueprint: ")
	b.WriteString(e.Kind.Error())
	if len(e.Names) > 0 {
		quoted := make([]string, len(e.Names))
		for i, n := range e.Names {
			quoted[i] = fmt.Sprintf("%q", n)
		}
		sep := ", "
		if errors.Is(e.Kind, ErrCyclicInheritance) {
			sep = " ➜ "
			quoted = append(quoted, quoted[0])
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(quoted, sep))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap returns the sentinel kind so errors.Is matches it.
func (e *StructuralError) Unwrap() error {
	return e.Kind
}

func structural(kind error, detail string, names ...string) *StructuralError {
	return &StructuralError{Kind: kind, Names: names, Detail: detail}
}

// MalformedValueError reports a field that failed typed interpretation.
type MalformedValueError struct {
	Object string
	Tag    string
	Field  string
	Value  string
	Err    error
}

// Error implements error.
func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("blueprint %q: %s.%s: malformed value %q: %v", e.Object, e.Tag, e.Field, e.Value, e.Err)
}

// Is matches ErrMalformedValue.
func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}

// Unwrap returns the underlying parse error.
func (e *MalformedValueError) Unwrap() error {
	return e.Err
}
