package storage

import "database/sql"

// MySQLClient wraps direct SQL access for automation definitions, execution
// progress and execution history.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient wires a sql.DB; pass a configured instance from main.
func NewMySQLClient(db *sql.DB) *MySQLClient {
	return &MySQLClient{db: db}
}
