// Package invariant re-reads an engine's own CSV output and checks it
// against the properties the engine is supposed to guarantee, so a run
// that "succeeded" but produced an inconsistent slice still fails loudly.
package invariant

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dbsmedya/pgslice/internal/graph"
)

const cellDelimiter = rune(0x1D)

// Violation describes one broken property.
type Violation struct {
	Table   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Table, v.Message)
}

// Check walks every reached table's output under outDir and returns every
// violation found. A nil/empty slice means the run is self-consistent.
func Check(state *graph.State, outDir string, rowCounts map[string]int) ([]Violation, error) {
	var violations []Violation

	if v := checkPartitionDisjoint(state); v != nil {
		violations = append(violations, *v)
	}

	for _, table := range state.ReachedTables() {
		tv, err := checkTable(state, outDir, table, rowCounts)
		if err != nil {
			return nil, err
		}
		violations = append(violations, tv...)
	}

	return violations, nil
}

func checkPartitionDisjoint(state *graph.State) *Violation {
	for _, table := range state.ReachedTables() {
		if state.IsDirectDescendant(table) && state.IsOutsider(table) {
			return &Violation{Table: table, Message: "classified as both direct descendant and outsider"}
		}
	}
	return nil
}

func checkTable(state *graph.State, outDir, table string, rowCounts map[string]int) ([]Violation, error) {
	var violations []Violation

	rawPath := filepath.Join(outDir, table, "data_search", table+".csv")
	rawRows, err := readCSV(rawPath)
	if err != nil {
		if os.IsNotExist(err) {
			violations = append(violations, Violation{Table: table, Message: "no raw CSV was written for a reached table"})
			return violations, nil
		}
		return nil, err
	}

	if want, ok := rowCounts[table]; ok && want != len(rawRows) {
		violations = append(violations, Violation{
			Table:   table,
			Message: fmt.Sprintf("row count mismatch: engine reported %d, raw CSV has %d", want, len(rawRows)),
		})
	}

	rawCols := len(state.TableCols[table])
	for i, row := range rawRows {
		if len(row) != rawCols {
			violations = append(violations, Violation{
				Table:   table,
				Message: fmt.Sprintf("row %d has %d cells, table declares %d columns (delimiter discipline violated)", i, len(row), rawCols),
			})
		}
	}

	needed := state.NeededColumns(table)
	parsedPath := filepath.Join(outDir, table, "data_search", table+"_parsed.csv")
	if len(needed) > 0 && rowCounts[table] > 0 {
		parsedRows, parsedCols, err := readCSVWithHeader(parsedPath)
		if err != nil {
			if os.IsNotExist(err) {
				violations = append(violations, Violation{Table: table, Message: "needed-FK columns present but no parsed projection CSV was written"})
				return violations, nil
			}
			return nil, err
		}
		if parsedCols != len(needed) {
			violations = append(violations, Violation{
				Table:   table,
				Message: fmt.Sprintf("parsed projection has %d columns, expected %d needed-FK columns", parsedCols, len(needed)),
			})
		}
		if len(parsedRows) != len(rawRows) {
			violations = append(violations, Violation{
				Table:   table,
				Message: fmt.Sprintf("parsed projection has %d data rows, raw CSV has %d", len(parsedRows), len(rawRows)),
			})
		}
	} else if rowCounts[table] == 0 {
		if _, err := os.Stat(parsedPath); err == nil {
			violations = append(violations, Violation{Table: table, Message: "parsed projection CSV was written despite zero rows"})
		}
	}

	return violations, nil
}

// readCSV returns every data row of a headerless CSV, such as the raw
// per-table extraction output.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = cellDelimiter
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invariant: read row of %q: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readCSVWithHeader returns every data row plus the header's column count,
// for CSVs such as the parsed projection that carry a header row.
func readCSVWithHeader(path string) ([][]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = cellDelimiter
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("invariant: read header of %q: %w", path, err)
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("invariant: read row of %q: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, len(header), nil
}
