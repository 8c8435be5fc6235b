package db

import (
	"database/sql"
	"path"
	"sync"

	"github.com/dev-warrior777/go-electrum-rpc/wallet"
	_ "github.com/mattn/go-sqlite3"
)

// Ensure SQLiteDatastore implements the wallet.Datastore interface.
var _ wallet.Datastore = (*SQLiteDatastore)(nil)

// This database is an SqLite3 implementation of Datastore.
type SQLiteDatastore struct {
	requests wallet.Requests
	db       *sql.DB
	lock     *sync.RWMutex
}

// Create opens (or creates) requests.db in repoPath.
func Create(repoPath string) (*SQLiteDatastore, error) {
	return open(path.Join(repoPath, "requests.db"))
}

// CreateInMemory makes a throw-away datastore.
func CreateInMemory() (*SQLiteDatastore, error) {
	return open(":memory:")
}

func open(dsn string) (*SQLiteDatastore, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared between calls
	conn.SetMaxOpenConns(1)

	if err = initDatabaseTables(conn); err != nil {
		conn.Close()
		return nil, err
	}

	l := new(sync.RWMutex)
	return &SQLiteDatastore{
		requests: &RequestsDB{
			db:   conn,
			lock: l,
		},
		db:   conn,
		lock: l,
	}, nil
}

func (db *SQLiteDatastore) Requests() wallet.Requests {
	return db.requests
}

func (db *SQLiteDatastore) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.db.Close()
}

func initDatabaseTables(db *sql.DB) error {
	var sqlStmt string
	sqlStmt = sqlStmt + `
	create table if not exists requests (address text primary key not null, uri text, status integer, statusString text, amount integer, amountBTC text, memo text, timestamp integer, expiration integer, metadata text);
	create index if not exists requests_timestamp on requests (timestamp);
	`
	_, err := db.Exec(sqlStmt)
	if err != nil {
		return err
	}
	return nil
}
