package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbsmedya/pgslice/internal/graph"
)

type fakeSchema struct {
	children map[string][]graph.FKEdge
	parents  map[string][]graph.FKEdge
	columns  map[string]map[string]graph.ColumnInfo
}

func (f *fakeSchema) ChildrenOf(ctx context.Context, table string) ([]graph.FKEdge, error) {
	return f.children[table], nil
}

func (f *fakeSchema) ParentsOf(ctx context.Context, table string) ([]graph.FKEdge, error) {
	return f.parents[table], nil
}

func (f *fakeSchema) ColumnsOf(ctx context.Context, table string) (map[string]graph.ColumnInfo, error) {
	if cols, ok := f.columns[table]; ok {
		return cols, nil
	}
	return map[string]graph.ColumnInfo{"id": {Name: "id", DataType: "integer"}}, nil
}

// buildTestState builds a users -> orders (descendant) -> shippers (outsider)
// graph used across the test file.
func buildTestState(t *testing.T) *graph.State {
	t.Helper()
	schema := &fakeSchema{
		children: map[string][]graph.FKEdge{
			"users": {{Table: "orders", ChildCol: "user_id", ParentCol: "id"}},
		},
		parents: map[string][]graph.FKEdge{
			"orders": {{Table: "shippers", ChildCol: "shipper_id", ParentCol: "id"}},
		},
		columns: map[string]map[string]graph.ColumnInfo{
			"users": {
				"id":    {Name: "id", DataType: "integer"},
				"email": {Name: "email", DataType: "text"},
			},
			"orders": {
				"id":         {Name: "id", DataType: "integer"},
				"user_id":    {Name: "user_id", DataType: "integer"},
				"shipper_id": {Name: "shipper_id", DataType: "integer"},
			},
			"shippers": {
				"id":   {Name: "id", DataType: "integer"},
				"name": {Name: "name", DataType: "text"},
			},
		},
	}
	builder := graph.NewBuilder(schema)
	state, err := builder.Build(context.Background(), "users", "1")
	require.NoError(t, err)
	require.NoError(t, graph.Partition(state))
	return state
}

func TestDescendantWhere_Root(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)

	where, args, err := e.descendantWhere("users")
	require.NoError(t, err)
	assert.Equal(t, `"id" = $1`, where)
	assert.Equal(t, []interface{}{"1"}, args)
}

func TestDescendantWhere_NoProjectedParent(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)

	where, args, err := e.descendantWhere("orders")
	require.NoError(t, err)
	assert.Equal(t, "1 = 2", where)
	assert.Nil(t, args)
}

func TestDescendantWhere_UsesProjectedParentValues(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)
	e.projections["users"] = map[string][]string{"id": {"1", "2"}}

	where, args, err := e.descendantWhere("orders")
	require.NoError(t, err)
	assert.Contains(t, where, `"user_id" IN`)
	assert.Equal(t, []interface{}{"1", "2"}, args)
}

func TestOutsiderWhere_NoDependantYet(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)

	where, args, err := e.outsiderWhere("shippers")
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestOutsiderWhere_UsesDependantProjection(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)
	e.projections["orders"] = map[string][]string{"shipper_id": {"9"}}

	where, args, err := e.outsiderWhere("shippers")
	require.NoError(t, err)
	assert.Contains(t, where, `"id" IN`)
	assert.Equal(t, []interface{}{"9"}, args)
}

func TestExtractTable_WritesCSVAndTracksProjections(t *testing.T) {
	state := buildTestState(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	outDir := t.TempDir()
	e := New(db, state, outDir, zap.NewNop(), nil)

	// Both cells carry the same value so the assertion below is independent
	// of the non-deterministic column order extractTable builds from a map.
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"email", "id"}).
			AddRow("1", "1"))

	err = e.extractTable(context.Background(), "users", `"id" = $1`, []interface{}{"1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1, e.RowCounts["users"])
	assert.Equal(t, []string{"1"}, e.projections["users"]["id"])

	rawPath := filepath.Join(outDir, "users", "data_search", "users.csv")
	_, err = os.Stat(rawPath)
	assert.NoError(t, err)

	parsedPath := filepath.Join(outDir, "users", "data_search", "users_parsed.csv")
	_, err = os.Stat(parsedPath)
	assert.NoError(t, err)
}

func TestExtractDescendants_SkipsNonDirectDescendants(t *testing.T) {
	state := buildTestState(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	outDir := t.TempDir()
	e := New(db, state, outDir, zap.NewNop(), nil)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"email", "id"}).AddRow("a@example.com", "1"))
	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shipper_id", "user_id"}).AddRow("10", "9", "1"))

	order := []string{"users", "orders", "shippers"}
	err = e.ExtractDescendants(context.Background(), order)
	require.NoError(t, err)

	_, ok := e.RowCounts["shippers"]
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractOutsiders_WarnsWhenNoReferencer(t *testing.T) {
	state := buildTestState(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := New(db, state, t.TempDir(), zap.NewNop(), nil)
	err = e.ExtractOutsiders(context.Background(), []string{"shippers"})
	require.NoError(t, err)
	assert.Empty(t, e.RowCounts)
}

func TestOutsiderWhere_FiltersNullSeedValues(t *testing.T) {
	state := buildTestState(t)
	e := New(nil, state, t.TempDir(), zap.NewNop(), nil)
	e.projections["orders"] = map[string][]string{"shipper_id": {"", "9", ""}}

	where, args, err := e.outsiderWhere("shippers")
	require.NoError(t, err)
	assert.Contains(t, where, `"id" IN`)
	assert.Equal(t, []interface{}{"9"}, args)
}

func TestExtractTable_NoRowsSkipsParsedProjection(t *testing.T) {
	state := buildTestState(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	outDir := t.TempDir()
	e := New(db, state, outDir, zap.NewNop(), nil)

	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shipper_id", "user_id"}))

	err = e.extractTable(context.Background(), "orders", "1 = 2", nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 0, e.RowCounts["orders"])

	rawPath := filepath.Join(outDir, "orders", "data_search", "orders.csv")
	_, err = os.Stat(rawPath)
	assert.NoError(t, err)

	parsedPath := filepath.Join(outDir, "orders", "data_search", "orders_parsed.csv")
	_, err = os.Stat(parsedPath)
	assert.True(t, os.IsNotExist(err))
}

func TestInlineArgs_SubstitutesHighestIndexFirst(t *testing.T) {
	args := []interface{}{"a", "b", "c", "d", "e", "f", "g", "h", "i", "ten"}
	out, err := inlineArgs(`"id" IN ($1, $10)`, args)
	require.NoError(t, err)
	assert.Equal(t, `"id" IN ('a', 'ten')`, out)
}

func TestInlineArgs_EscapesQuotes(t *testing.T) {
	out, err := inlineArgs(`"name" = $1`, []interface{}{"o'brien"})
	require.NoError(t, err)
	assert.Equal(t, `"name" = 'o''brien'`, out)
}
