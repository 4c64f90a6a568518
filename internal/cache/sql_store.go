// SQLStore backs the bytecode cache with a SQL table instead of an
// embedded file, for hosts that already run a shared database. Driver
// selection and placeholder rebinding are both keyed off the same
// dbType string, with the drivers registered by blank import below.
package cache

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore is a Store backed by a `formula_cache(cache_key TEXT PRIMARY KEY,
// bytecode BLOB)` table, reachable through any of the four registered
// drivers.
type SQLStore struct {
	db     *sql.DB
	dbType string
}

// driverNames maps a short dbType name to the database/sql driver name
// registered by the corresponding blank import above.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"mysql":    "mysql",
	"mssql":    "sqlserver",
}

// OpenSQLStore opens a SQLStore against dsn using the driver named by
// dbType ("sqlite", "postgres", "mysql", or "mssql"), and ensures the
// cache table exists.
func OpenSQLStore(dbType, dsn string) (*SQLStore, error) {
	driver, ok := driverNames[dbType]
	if !ok {
		return nil, fmt.Errorf("cache: unsupported database type %q", dbType)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", dbType, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: pinging %s: %w", dbType, err)
	}
	store := &SQLStore{db: db, dbType: dbType}
	if _, err := db.Exec(store.rebind(`CREATE TABLE IF NOT EXISTS formula_cache (cache_key TEXT PRIMARY KEY, bytecode BLOB)`)); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating table: %w", err)
	}
	return store, nil
}

// rebind rewrites a query written with `?` placeholders into the
// parameter syntax dbType's driver actually accepts: lib/pq requires
// `$1, $2, ...` and go-mssqldb requires `@p1, @p2, ...`; sqlite and
// mysql accept `?` as written.
func (s *SQLStore) rebind(query string) string {
	switch s.dbType {
	case "postgres":
		return rebindPlaceholders(query, func(n int) string { return "$" + strconv.Itoa(n) })
	case "mssql":
		return rebindPlaceholders(query, func(n int) string { return "@p" + strconv.Itoa(n) })
	default:
		return query
	}
}

func rebindPlaceholders(query string, format func(n int) string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(format(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Get(key Key) ([]byte, bool, error) {
	var bytecode []byte
	query := s.rebind(`SELECT bytecode FROM formula_cache WHERE cache_key = ?`)
	err := s.db.QueryRow(query, encodeKey(key)).Scan(&bytecode)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: sql get: %w", err)
	}
	return bytecode, true, nil
}

func (s *SQLStore) Put(key Key, bytecode []byte) error {
	query := s.rebind(`INSERT INTO formula_cache (cache_key, bytecode) VALUES (?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET bytecode = excluded.bytecode`)
	_, err := s.db.Exec(query, encodeKey(key), bytecode)
	if err != nil {
		return fmt.Errorf("cache: sql put: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func encodeKey(key Key) string {
	return hex.EncodeToString(key[:])
}
