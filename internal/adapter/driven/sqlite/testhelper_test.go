package sqlite

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
)

// setupTestDB opens a private in-memory database, migrates it, and returns
// the same split writer/reader pools the repos see in production. The DSN is
// keyed on t.Name() (percent-encoded, since the name lands in a file: URI)
// so parallel tests never share state; cache=shared lets the two pools see
// one database. WAL does not apply in memory, so that pragma is dropped.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	memPragmas := strings.Replace(dsnPragmas, "_pragma=journal_mode(WAL)&", "", 1)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), memPragmas)

	writer, err := openPool(dsn, 1)
	if err != nil {
		t.Fatalf("open test writer: %v", err)
	}

	reader, err := openPool(dsn, 4)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("open test reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}
	t.Cleanup(func() { _ = db.Close() })

	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
