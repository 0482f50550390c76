package scripting

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

// ErrQuery reports an expression that failed to compile or evaluate.
var ErrQuery = errors.New("scripting: query failed")

// Query is a compiled Lua boolean expression over one object, bound to a
// global named obj with these members:
//
//	obj.name                     template name
//	obj.parent                   parent name, or nil for the root
//	obj.depth                    number of ancestors
//	obj.has(tag)                 whether the tag is present
//	obj.field(tag, field)        raw field value, or nil
//	obj.stat(tag, field, def)    numeric field value, def when absent
//	obj.flag(tag, field)         boolean field value
//	obj.inherits(name)           whether obj is or descends from name
//	obj.specified(tag [, field]) whether obj's own template sets the tag
//
// A Query owns a Lua state and is not safe for concurrent use.
type Query struct {
	expr  string
	limit int
	L     *lua.LState
	fn    *lua.LFunction
}

// Compile parses expr as a Lua expression.
//
// Precondition: limit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a Query the caller must Close, or an error matching
// ErrQuery.
func Compile(expr string, limit int) (*Query, error) {
	L := NewSandboxedState(limit)
	fn, err := L.LoadString("return (" + expr + "\n)")
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: compiling %q: %v", ErrQuery, expr, err)
	}
	return &Query{expr: expr, limit: limit, L: L, fn: fn}, nil
}

// Close releases the Lua state.
func (q *Query) Close() {
	q.L.Close()
}

// Match evaluates the expression for obj with a fresh instruction budget.
// Lua truthiness applies: only nil and false are false.
//
// Postcondition: Returns the result, or an error matching ErrQuery when the
// expression raises an error or exhausts its budget.
func (q *Query) Match(obj *blueprint.Object) (bool, error) {
	cancel := limitInstructions(q.L, q.limit)
	defer cancel()

	q.L.SetGlobal("obj", q.objectTable(obj))
	err := q.L.CallByParam(lua.P{Fn: q.fn, NRet: 1, Protect: true})
	if err != nil {
		return false, fmt.Errorf("%w: %q on %s: %v", ErrQuery, q.expr, obj.Name(), err)
	}
	ret := q.L.Get(-1)
	q.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// objectTable exposes obj to Lua.
func (q *Query) objectTable(obj *blueprint.Object) *lua.LTable {
	L := q.L
	t := L.NewTable()
	t.RawSetString("name", lua.LString(obj.Name()))
	t.RawSetString("depth", lua.LNumber(obj.Depth()))
	if p := obj.ParentName(); p != "" {
		t.RawSetString("parent", lua.LString(p))
	}

	t.RawSetString("has", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(obj.HasTag(L.CheckString(1))))
		return 1
	}))
	t.RawSetString("field", L.NewFunction(func(L *lua.LState) int {
		v, ok := obj.Field(L.CheckString(1), L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	}))
	t.RawSetString("stat", L.NewFunction(func(L *lua.LState) int {
		n, err := obj.Stat(L.CheckString(1), L.CheckString(2), L.OptInt(3, 0))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	t.RawSetString("flag", L.NewFunction(func(L *lua.LState) int {
		b, err := obj.Flag(L.CheckString(1), L.CheckString(2))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LBool(b))
		return 1
	}))
	t.RawSetString("inherits", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(obj.InheritsFrom(L.CheckString(1))))
		return 1
	}))
	t.RawSetString("specified", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(obj.IsSpecified(L.CheckString(1), L.OptString(2, ""))))
		return 1
	}))
	return t
}

// Filter returns the objects of tree, in pre-order, for which expr is true.
// The first evaluation error aborts the query; the tree is unaffected.
//
// Precondition: tree must be non-nil; limit >= 0 is the per-object budget.
func Filter(tree *blueprint.Tree, expr string, limit int) ([]*blueprint.Object, error) {
	q, err := Compile(expr, limit)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	var (
		matches []*blueprint.Object
		evalErr error
	)
	tree.Walk(func(obj *blueprint.Object, _ int) bool {
		if evalErr != nil {
			return false
		}
		ok, err := q.Match(obj)
		if err != nil {
			evalErr = err
			return false
		}
		if ok {
			matches = append(matches, obj)
		}
		return true
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return matches, nil
}
