package blueprint

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/codec"
	"github.com/cory-johannsen/qudex/internal/observability"
)

// Option configures Resolve.
type Option func(*options)

type options struct {
	source string
	logger *zap.Logger
}

// WithSource labels the resulting tree with where its templates came from.
func WithSource(source string) Option {
	return func(o *options) { o.source = source }
}

// WithLogger sets the logger used to report resolution statistics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// resolver holds the state of one Resolve call.
type resolver struct {
	byName     map[string]*RawTemplate
	resolved   map[string]*Object
	inProgress map[string]bool
}

// Resolve builds the object tree for a forest of raw templates.
//
// Precondition: templates form a forest with exactly one parentless template,
// unique non-empty names, parents that exist, and no cycles.
// Postcondition: Returns a tree holding exactly one object per template, or a
// *StructuralError naming the offending templates. No partial tree is returned.
func Resolve(templates []RawTemplate, opts ...Option) (*Tree, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := observability.Component(o.logger, "resolver")
	start := time.Now()

	// Own the input so later mutation by the caller cannot leak into the tree.
	forest := cloneTemplates(templates)

	r := &resolver{
		byName:     make(map[string]*RawTemplate, len(forest)),
		resolved:   make(map[string]*Object, len(forest)),
		inProgress: make(map[string]bool),
	}
	root, err := r.index(forest)
	if err != nil {
		return nil, err
	}

	for i := range forest {
		if err := r.resolve(forest[i].Name); err != nil {
			return nil, err
		}
	}

	// Children follow declared order regardless of resolution order.
	for i := range forest {
		if parent := forest[i].Parent; parent != "" {
			p := r.resolved[parent]
			p.children = append(p.children, forest[i].Name)
		}
	}

	fingerprint, err := codec.Fingerprint(forest)
	if err != nil {
		return nil, fmt.Errorf("blueprint: fingerprinting forest: %w", err)
	}

	tree := &Tree{
		id:          uuid.New(),
		fingerprint: fingerprint,
		source:      o.source,
		root:        r.resolved[root],
		index:       r.resolved,
		templates:   forest,
	}
	maxDepth := 0
	for _, obj := range r.resolved {
		obj.tree = tree
		maxDepth = max(maxDepth, obj.depth)
	}

	logger.Debug("resolved blueprint forest",
		zap.String("source", o.source),
		zap.Int("objects", len(r.resolved)),
		zap.Int("max_depth", maxDepth),
		zap.String("fingerprint", fingerprint.Short()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return tree, nil
}

// index validates names and parent references and returns the root's name.
func (r *resolver) index(forest []RawTemplate) (string, error) {
	var roots []string
	for i := range forest {
		t := &forest[i]
		if t.Name == "" {
			return "", structural(ErrEmptyName, fmt.Sprintf("template #%d", i))
		}
		if _, dup := r.byName[t.Name]; dup {
			return "", structural(ErrDuplicateName, "", t.Name)
		}
		r.byName[t.Name] = t
		if t.Parent == "" {
			roots = append(roots, t.Name)
		}
	}

	var missing []string
	for i := range forest {
		t := &forest[i]
		if t.Parent == "" {
			continue
		}
		if _, ok := r.byName[t.Parent]; !ok {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		first := r.byName[missing[0]]
		return "", structural(ErrMissingParent, fmt.Sprintf("%q inherits from unknown %q", first.Name, first.Parent), missing...)
	}

	switch len(roots) {
	case 0:
		return "", structural(ErrNoRoot, "")
	case 1:
		return roots[0], nil
	default:
		return "", structural(ErrMultipleRoots, "", roots...)
	}
}

// resolve computes name and any unresolved ancestors. The parent chain is
// walked with an explicit stack; a name met again while still in progress
// closes a cycle.
func (r *resolver) resolve(name string) error {
	var stack []string
	for cur := name; ; {
		if _, done := r.resolved[cur]; done {
			break
		}
		if r.inProgress[cur] {
			cycle := stack[slices.Index(stack, cur):]
			return structural(ErrCyclicInheritance, "", cycle...)
		}
		r.inProgress[cur] = true
		stack = append(stack, cur)

		parent := r.byName[cur].Parent
		if parent == "" {
			break
		}
		cur = parent
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if err := r.build(stack[i]); err != nil {
			return err
		}
		delete(r.inProgress, stack[i])
	}
	return nil
}

// build applies a template's operations over its resolved parent.
//
// Precondition: the template's parent, if any, is resolved.
func (r *resolver) build(name string) error {
	t := r.byName[name]
	obj := &Object{
		name:     name,
		parent:   t.Parent,
		declared: make(map[string]map[string]bool),
	}
	if t.Parent == "" {
		obj.attrs = make(Attributes)
	} else {
		p := r.resolved[t.Parent]
		obj.attrs = p.attrs.inheritable()
		obj.depth = p.depth + 1
	}

	for i, op := range t.Ops {
		if err := op.validate(); err != nil {
			return structural(ErrInvalidOperation, fmt.Sprintf("operation #%d: %v", i, err), name)
		}
		obj.apply(op)
	}

	r.resolved[name] = obj
	return nil
}

// apply performs one operation on the object under construction. Later
// operations on the same field win.
func (o *Object) apply(op AttributeOp) {
	switch op.Kind {
	case OpSet:
		o.attrs[op.Tag] = op.Fields.Clone()
		fields := make(map[string]bool, len(op.Fields))
		for f := range op.Fields {
			fields[f] = true
		}
		o.declared[op.Tag] = fields
	case OpRemove:
		delete(o.attrs, op.Tag)
		delete(o.declared, op.Tag)
	case OpMergeField:
		fields, ok := o.attrs[op.Tag]
		if !ok {
			fields = make(Fields)
			o.attrs[op.Tag] = fields
		}
		fields[op.Field] = op.Value
		o.declare(op.Tag)[op.Field] = true
	case OpEnsure:
		if _, ok := o.attrs[op.Tag]; !ok {
			o.attrs[op.Tag] = make(Fields)
		}
		o.declare(op.Tag)
	}
}

func (o *Object) declare(tag string) map[string]bool {
	fields, ok := o.declared[tag]
	if !ok {
		fields = make(map[string]bool)
		o.declared[tag] = fields
	}
	return fields
}

func cloneTemplates(in []RawTemplate) []RawTemplate {
	out := make([]RawTemplate, len(in))
	for i, t := range in {
		ops := make([]AttributeOp, len(t.Ops))
		for j, op := range t.Ops {
			if op.Fields != nil {
				op.Fields = op.Fields.Clone()
			}
			ops[j] = op
		}
		out[i] = RawTemplate{Name: t.Name, Parent: t.Parent, Ops: ops}
	}
	return out
}
