package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// ColumnType is the storage class of a result column
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInteger
	ColumnReal
)

func (c ColumnType) String() string {
	switch c {
	case ColumnInteger:
		return "integer"
	case ColumnReal:
		return "real"
	default:
		return "text"
	}
}

// Column describes one column of a result table
type Column struct {
	Name string
	Type ColumnType
}

// ResultTable is a named, typed set of rows to append to a SQL table
type ResultTable struct {
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)

// ValidIdentifier reports whether name can be used as a table or column name
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// WriteResultTable appends the rows of t to the table of the same name. The
// table is created when missing and extended with any missing columns. All
// statements run in one transaction.
func (db *DB) WriteResultTable(ctx context.Context, t *ResultTable) error {
	if !ValidIdentifier(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}
	for _, c := range t.Columns {
		if !ValidIdentifier(c.Name) {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := db.tableColumns(ctx, tx, t.Name)
	if err != nil {
		return err
	}

	table := quoteIdent(t.Name)
	if len(existing) == 0 {
		defs := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			defs = append(defs, quoteIdent(c.Name)+" "+db.sqlType(c.Type))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
	} else {
		for _, c := range t.Columns {
			if existing[strings.ToLower(c.Name)] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, quoteIdent(c.Name), db.sqlType(c.Type))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to add column %s to %s: %w", c.Name, t.Name, err)
			}
		}
	}

	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	insert := db.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", ")))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(t.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// tableColumns returns the lower-cased column names of a table, empty when
// the table does not exist
func (db *DB) tableColumns(ctx context.Context, tx *sql.Tx, name string) (map[string]bool, error) {
	var query string
	switch db.Driver() {
	case DriverSQLite:
		query = `SELECT name FROM pragma_table_info(?)`
	default:
		query = `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1`
	}

	rows, err := tx.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols[strings.ToLower(col)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns: %w", err)
	}
	return cols, nil
}

func (db *DB) sqlType(c ColumnType) string {
	postgres := db.Driver() == DriverPostgres
	switch c {
	case ColumnInteger:
		if postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case ColumnReal:
		if postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	default:
		return "TEXT"
	}
}

// CountRows returns the number of rows in a table
func (db *DB) CountRows(ctx context.Context, name string) (int, error) {
	if !ValidIdentifier(name) {
		return 0, fmt.Errorf("invalid table name %q", name)
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", name, err)
	}
	return n, nil
}
