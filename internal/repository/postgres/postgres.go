// Package postgres implements the repository interfaces on database/sql with
// parameterized queries. It contains no business logic.
package postgres

import "database/sql"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// expectAffected turns "no rows matched" into sql.ErrNoRows so callers can report 404.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
