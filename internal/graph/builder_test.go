package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSchema is a minimal in-memory Schema used to drive Builder without a
// live database.
type fakeSchema struct {
	children map[string][]FKEdge
	parents  map[string][]FKEdge
	columns  map[string]map[string]ColumnInfo
	errs     map[string]error
}

func (f *fakeSchema) ChildrenOf(ctx context.Context, table string) ([]FKEdge, error) {
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	return f.children[table], nil
}

func (f *fakeSchema) ParentsOf(ctx context.Context, table string) ([]FKEdge, error) {
	return f.parents[table], nil
}

func (f *fakeSchema) ColumnsOf(ctx context.Context, table string) (map[string]ColumnInfo, error) {
	if cols, ok := f.columns[table]; ok {
		return cols, nil
	}
	return map[string]ColumnInfo{"id": {Name: "id", DataType: "integer"}}, nil
}

func TestBuilder_Build_EmptyRoot(t *testing.T) {
	b := NewBuilder(&fakeSchema{})
	_, err := b.Build(context.Background(), "", "1")
	assert.Error(t, err)
}

func TestBuilder_Build_SingleTable(t *testing.T) {
	schema := &fakeSchema{}
	b := NewBuilder(schema)

	s, err := b.Build(context.Background(), "users", "42")
	require.NoError(t, err)

	assert.Equal(t, "users", s.Root)
	assert.Equal(t, "42", s.RootID)
	assert.ElementsMatch(t, []string{"users"}, s.ReachedTables())
	assert.True(t, s.IsDirectDescendant("users"))
}

func TestBuilder_Build_ChildIsPromotedToDirectDescendant(t *testing.T) {
	schema := &fakeSchema{
		children: map[string][]FKEdge{
			"users": {{Table: "orders", ChildCol: "user_id", ParentCol: "id"}},
		},
	}
	b := NewBuilder(schema)

	s, err := b.Build(context.Background(), "users", "1")
	require.NoError(t, err)

	assert.True(t, s.IsDirectDescendant("orders"))
	assert.Equal(t, []string{"users"}, s.DepsOf("orders"))
	assert.Equal(t, "user_id", s.FKeys["orders"]["users"])
	assert.Equal(t, "id", s.FKeyCols["users"]["user_id"])
}

func TestBuilder_Build_ParentIsReachedButNotPromoted(t *testing.T) {
	schema := &fakeSchema{
		parents: map[string][]FKEdge{
			"orders": {{Table: "shippers", ChildCol: "shipper_id", ParentCol: "id"}},
		},
	}
	b := NewBuilder(schema)

	s, err := b.Build(context.Background(), "orders", "1")
	require.NoError(t, err)

	assert.Contains(t, s.ReachedTables(), "shippers")
	assert.False(t, s.IsDirectDescendant("shippers"))
	assert.Equal(t, []string{"shippers"}, s.DepsOf("orders"))
}

func TestBuilder_Build_ParentReachedAgainViaChildrenStepIsPromoted(t *testing.T) {
	// shippers is both a child of root (shippers.root_id) and a parent of root
	// (root.shipper_id); the children-of step from root promotes it, and the
	// parent-of step that reaches it again does not undo that.
	schema := &fakeSchema{
		children: map[string][]FKEdge{
			"root": {{Table: "shippers", ChildCol: "root_id", ParentCol: "id"}},
		},
		parents: map[string][]FKEdge{
			"root": {{Table: "shippers", ChildCol: "shipper_id", ParentCol: "id"}},
		},
	}
	b := NewBuilder(schema)

	s, err := b.Build(context.Background(), "root", "1")
	require.NoError(t, err)

	assert.True(t, s.IsDirectDescendant("shippers"))
}

func TestBuilder_Build_ChildrenOfError(t *testing.T) {
	schema := &fakeSchema{
		errs: map[string]error{"users": assert.AnError},
	}
	b := NewBuilder(schema)

	_, err := b.Build(context.Background(), "users", "1")
	assert.Error(t, err)
}

func TestBuilder_Build_SelfReferentialFK(t *testing.T) {
	schema := &fakeSchema{
		children: map[string][]FKEdge{
			"categories": {{Table: "categories", ChildCol: "parent_id", ParentCol: "id"}},
		},
	}
	b := NewBuilder(schema)

	s, err := b.Build(context.Background(), "categories", "1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"categories"}, s.ReachedTables())
}
