package runner

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
)

// stubServer is a database/sql driver which records what a session does.
type stubServer struct {
	mu     sync.Mutex
	events []string
	// execErr fails Exec of any statement containing the key.
	execErr map[string]error
	// commitErr fails every Commit.
	commitErr error
}

func newStubServer() *stubServer {
	return &stubServer{execErr: map[string]error{}}
}

// opener plugs into Connector.open.
func (s *stubServer) opener(driverName, dsn string) (*sql.DB, error) {
	return sql.OpenDB(s), nil
}

func (s *stubServer) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *stubServer) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Connect implements driver.Connector.
func (s *stubServer) Connect(context.Context) (driver.Conn, error) {
	s.record("OPEN")
	return &stubConn{server: s}, nil
}

// Driver implements driver.Connector.
func (s *stubServer) Driver() driver.Driver {
	return stubDriver{s}
}

type stubDriver struct {
	server *stubServer
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return d.server.Connect(context.Background())
}

type stubConn struct {
	server *stubServer
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *stubConn) Close() error {
	c.server.record("CLOSE")
	return nil
}

func (c *stubConn) Begin() (driver.Tx, error) {
	c.server.record("BEGIN")
	return &stubTx{server: c.server}, nil
}

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.server.record(query)
	for key, err := range c.server.execErr {
		if strings.Contains(query, key) {
			return nil, err
		}
	}
	return driver.RowsAffected(0), nil
}

type stubTx struct {
	server *stubServer
}

func (tx *stubTx) Commit() error {
	if tx.server.commitErr != nil {
		tx.server.record("COMMIT FAILED")
		return tx.server.commitErr
	}
	tx.server.record("COMMIT")
	return nil
}

func (tx *stubTx) Rollback() error {
	tx.server.record("ROLLBACK")
	return nil
}
