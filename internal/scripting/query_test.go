package scripting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/scripting"
)

func queryTree(t *testing.T) *blueprint.Tree {
	t.Helper()
	tree, err := blueprint.Resolve([]blueprint.RawTemplate{
		{Name: "Object", Ops: []blueprint.AttributeOp{blueprint.MergeField("part_Physics", "Weight", "0")}},
		{Name: "Item", Parent: "Object", Ops: []blueprint.AttributeOp{
			blueprint.MergeField("part_Physics", "Takeable", "true"),
		}},
		{Name: "Dagger", Parent: "Item", Ops: []blueprint.AttributeOp{
			blueprint.MergeField("part_MeleeWeapon", "BaseDamage", "1d4"),
			blueprint.MergeField("part_Physics", "Weight", "4"),
		}},
		{Name: "Anvil", Parent: "Item", Ops: []blueprint.AttributeOp{
			blueprint.MergeField("part_Physics", "Weight", "200"),
			blueprint.MergeField("part_Physics", "Odd", "heavy"),
		}},
		{Name: "Creature", Parent: "Object"},
	})
	require.NoError(t, err)
	return tree
}

func names(objs []*blueprint.Object) []string {
	var out []string
	for _, o := range objs {
		out = append(out, o.Name())
	}
	return out
}

func TestFilter_Expressions(t *testing.T) {
	tree := queryTree(t)
	cases := []struct {
		expr string
		want []string
	}{
		{`obj.inherits("Item")`, []string{"Item", "Dagger", "Anvil"}},
		{`obj.has("part_MeleeWeapon")`, []string{"Dagger"}},
		{`obj.stat("part_Physics", "Weight", 0) > 3`, []string{"Dagger", "Anvil"}},
		{`obj.field("part_MeleeWeapon", "BaseDamage") == "1d4"`, []string{"Dagger"}},
		{`obj.depth == 1`, []string{"Item", "Creature"}},
		{`obj.parent == nil`, []string{"Object"}},
		{`obj.specified("part_Physics", "Weight") and obj.name ~= "Object"`, []string{"Dagger", "Anvil"}},
		{`obj.flag("part_Physics", "Takeable")`, []string{"Item", "Dagger", "Anvil"}},
		{`string.find(obj.name, "^A") ~= nil`, []string{"Anvil"}},
		{`false`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := scripting.Filter(tree, tc.expr, 0)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, names(got))
		})
	}
}

func TestFilter_CompileError(t *testing.T) {
	_, err := scripting.Filter(queryTree(t), `obj.name ==`, 0)
	assert.ErrorIs(t, err, scripting.ErrQuery)
}

func TestFilter_RuntimeErrorFailsQuery(t *testing.T) {
	tree := queryTree(t)
	_, err := scripting.Filter(tree, `obj.stat("part_Physics", "Odd", 0) > 0`, 0)
	require.ErrorIs(t, err, scripting.ErrQuery)
	assert.Contains(t, err.Error(), "Anvil")

	// The tree is still usable afterwards.
	got, err := scripting.Filter(tree, `obj.has("part_Physics")`, 0)
	require.NoError(t, err)
	assert.Len(t, got, tree.Len())
}

func TestFilter_InstructionLimit(t *testing.T) {
	_, err := scripting.Filter(queryTree(t), `(function() while true do end end)()`, 100)
	assert.ErrorIs(t, err, scripting.ErrQuery)
}

func TestQuery_BudgetIsPerObject(t *testing.T) {
	// Each evaluation spends roughly the same budget; a limit that fits one
	// evaluation must fit all of them.
	tree := queryTree(t)
	expr := `(function() local n = 0 for i = 1, 20 do n = n + i end return n > 0 end)()`
	got, err := scripting.Filter(tree, expr, 1_000)
	require.NoError(t, err)
	assert.Len(t, got, tree.Len())
}

func TestQuery_CannotReachUnsafeGlobals(t *testing.T) {
	tree := queryTree(t)
	for _, expr := range []string{`os.exit(1)`, `io.open("/etc/passwd")`, `require("os")`, `load("return 1")()`} {
		_, err := scripting.Filter(tree, expr, 0)
		assert.ErrorIs(t, err, scripting.ErrQuery, expr)
	}
}

func TestQuery_Property_DepthMatchesTree(t *testing.T) {
	tree := queryTree(t)
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.IntRange(0, 3).Draw(t, "depth")
		got, err := scripting.Filter(tree, fmt.Sprintf("obj.depth == %d", d), 0)
		if err != nil {
			t.Fatal(err)
		}
		var want []string
		tree.Walk(func(o *blueprint.Object, depth int) bool {
			if depth == d {
				want = append(want, o.Name())
			}
			return true
		})
		assert.Equal(t, want, names(got))
	})
}
