package storage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"
)

type countingRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *countingRecorder) ObserveQuery(op string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTimedDB_RecordsEveryStatement verifies each wrapped call reports a timing.
func TestTimedDB_RecordsEveryStatement(t *testing.T) {
	db := openTimedTestDB(t)
	rec := &countingRecorder{}
	tdb := NewTimedDB(db, rec, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()

	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q, want hello", val)
	}
	if rec.count() != 3 {
		t.Errorf("recorded %d, want 3", rec.count())
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged and
// timing is still recorded.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	db := openTimedTestDB(t)
	rec := &countingRecorder{}
	tdb := NewTimedDB(db, rec, 0)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO nonexistent_table VALUES (?)"); err == nil {
		t.Fatal("expected error from invalid SQL, got nil")
	}
	var val string
	err := tdb.QueryRowContext(context.Background(), "SELECT val FROM test WHERE id = ?", "nonexistent").Scan(&val)
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("recorded %d, want 2", rec.count())
	}
}

// TestTimedDB_CancelledContext verifies a cancelled context returns an error.
func TestTimedDB_CancelledContext(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// TestTimedDB_RawDB verifies RawDB returns the original *sql.DB.
func TestTimedDB_RawDB(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, 0)
	if tdb.RawDB() != db {
		t.Error("RawDB() should return the original *sql.DB")
	}
}

// TestTimedDB_ConcurrentMixedOps verifies no data races under concurrent use.
func TestTimedDB_ConcurrentMixedOps(t *testing.T) {
	db := openTimedTestDB(t)
	rec := &countingRecorder{}
	tdb := NewTimedDB(db, rec, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				tdb.ExecContext(ctx, "INSERT OR REPLACE INTO test (id, val) VALUES (?, ?)", "w", "v")
				var v string
				tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "w").Scan(&v)
			}
		}()
	}
	wg.Wait()

	if rec.count() != 200 {
		t.Errorf("recorded %d, want 200", rec.count())
	}
}

// BenchmarkTimedDB_Overhead measures the instrumentation overhead.
func BenchmarkTimedDB_Overhead(b *testing.B) {
	db, _ := Open(":memory:")
	defer db.Close()
	db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, val TEXT)")
	db.Exec("INSERT INTO bench VALUES (1, 'x')")
	ctx := context.Background()

	b.Run("RawDB", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			db.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1")
		}
	})

	tdb := NewTimedDB(db, &countingRecorder{}, 0)
	b.Run("TimedDB", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			tdb.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1")
		}
	})
}
