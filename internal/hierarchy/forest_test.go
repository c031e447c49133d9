package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id     string
	parent string
	sort   int
}

var builder = Builder[item, string]{
	Key: func(i item) string { return i.id },
	Parent: func(i item) (string, bool) {
		return i.parent, i.parent != ""
	},
}

func ids(nodes []*Node[item]) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Value.id)
	}
	return out
}

func TestBuild_Chain(t *testing.T) {
	forest, err := builder.Build([]item{
		{id: "C", parent: "B"},
		{id: "A"},
		{id: "B", parent: "A"},
	})
	require.NoError(t, err)
	require.Len(t, forest, 1)

	a := forest[0]
	assert.Equal(t, "A", a.Value.id)
	assert.Equal(t, 0, a.Depth)
	assert.Equal(t, 2, a.Descendants)
	require.Len(t, a.Children, 1)

	b := a.Children[0]
	assert.Equal(t, "B", b.Value.id)
	assert.Equal(t, 1, b.Depth)
	require.Len(t, b.Children, 1)

	c := b.Children[0]
	assert.Equal(t, "C", c.Value.id)
	assert.Equal(t, 2, c.Depth)
	assert.Empty(t, c.Children)
	assert.Equal(t, 0, c.Descendants)
}

func TestBuild_TwoCycleIsIntegrityError(t *testing.T) {
	_, err := builder.Build([]item{
		{id: "A", parent: "B"},
		{id: "B", parent: "A"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindCycle, ie.Kind)
}

func TestBuild_CycleBesideValidTree(t *testing.T) {
	_, err := builder.Build([]item{
		{id: "root"},
		{id: "leaf", parent: "root"},
		{id: "X", parent: "Y"},
		{id: "Y", parent: "Z"},
		{id: "Z", parent: "X"},
	})
	assert.ErrorIs(t, err, ErrIntegrity, "no partial forest is returned")
}

func TestBuild_SelfParent(t *testing.T) {
	_, err := builder.Build([]item{{id: "A", parent: "A"}})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestBuild_DanglingAndDuplicate(t *testing.T) {
	_, err := builder.Build([]item{{id: "A", parent: "missing"}})
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindDanglingParent, ie.Kind)
	assert.Equal(t, "A", ie.ID)

	_, err = builder.Build([]item{{id: "A"}, {id: "A"}})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindDuplicateID, ie.Kind)
}

func TestBuild_PreservesInputSiblingOrder(t *testing.T) {
	forest, err := builder.Build([]item{
		{id: "r2"},
		{id: "r1"},
		{id: "c3", parent: "r1"},
		{id: "c1", parent: "r1"},
		{id: "c2", parent: "r1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(forest))
	assert.Equal(t, []string{"c3", "c1", "c2"}, ids(forest[1].Children))
}

func TestBuild_SortsSiblingsBySortKey(t *testing.T) {
	sorted := builder
	sorted.Less = func(a, b item) bool { return a.sort < b.sort }

	input := []item{
		{id: "c", parent: "root", sort: 3},
		{id: "a", parent: "root", sort: 1},
		{id: "root"},
		{id: "b2", parent: "root", sort: 2},
		{id: "b1", parent: "root", sort: 2},
	}
	forest, err := sorted.Build(input)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	// ties keep input order
	assert.Equal(t, []string{"a", "b2", "b1", "c"}, ids(forest[0].Children))
	assert.Equal(t, "c", input[0].id, "input slice is not reordered")
}

func TestBuild_Empty(t *testing.T) {
	forest, err := builder.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, forest)
}

func TestFoldAndWalk(t *testing.T) {
	forest, err := builder.Build([]item{
		{id: "A"},
		{id: "B", parent: "A"},
		{id: "C", parent: "A"},
		{id: "D", parent: "C"},
	})
	require.NoError(t, err)

	var order []string
	Walk(forest, func(n *Node[item]) { order = append(order, n.Value.id) })
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)

	type sized struct {
		ID       string
		Total    int
		Children []sized
	}
	out := Fold(forest, func(n *Node[item], children []sized) sized {
		total := 1
		for _, c := range children {
			total += c.Total
		}
		return sized{ID: n.Value.id, Total: total, Children: children}
	})
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].Total)
	assert.Equal(t, 2, out[0].Children[1].Total)
}

func TestReaches(t *testing.T) {
	parents := map[string]string{"B": "A", "C": "B"}
	parentOf := func(k string) (string, bool) {
		p, ok := parents[k]
		return p, ok
	}

	ok, err := Reaches("C", "A", parentOf)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Reaches("A", "C", parentOf)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Reaches("B", "B", parentOf)
	require.NoError(t, err)
	assert.True(t, ok)

	parents["A"] = "C"
	_, err = Reaches("C", "Z", parentOf)
	assert.ErrorIs(t, err, ErrIntegrity)
}
