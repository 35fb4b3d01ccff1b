package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sportify/internal/adapters/storage"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store on the document table.
// Fields are stored as JSON text and filtered with json_extract/json_each.
type SQLiteStore struct {
	db       storage.SQLDB
	feed     Feed
	observer Observer
	newID    func() string
	now      func() time.Time
	watcher  watcher
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a document store.
// PRE: db has been initialized with storage.InitDB
func NewSQLiteStore(db storage.SQLDB, opts Options) *SQLiteStore {
	s := &SQLiteStore{
		db:       db,
		feed:     opts.Feed,
		observer: opts.Observer,
		newID:    opts.NewID,
		now:      opts.Now,
	}
	if s.feed == nil {
		s.feed = NewLocalFeed()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.watcher = watcher{feed: s.feed, observer: s.observer, query: s.query}
	return s
}

// Get returns one document.
// PRE: id is non-empty
// POST: Returns the document or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (doc Document, err error) {
	defer s.observe("get", time.Now(), &err)
	row := s.db.QueryRowContext(ctx,
		"SELECT id, fields, created_at, updated_at FROM document WHERE collection = ? AND id = ?",
		collection, id)
	doc, err = scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// Query returns every document in collection matching all filters.
func (s *SQLiteStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	prepared, err := prepareFilters(filters)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, collection, prepared)
}

func (s *SQLiteStore) query(ctx context.Context, collection string, filters []Filter) (docs []Document, err error) {
	defer s.observe("query", time.Now(), &err)
	where, args, err := compileFilters(filters)
	if err != nil {
		return nil, err
	}
	q := "SELECT id, fields, created_at, updated_at FROM document WHERE collection = ?" + where + " ORDER BY created_at, id"
	rows, err := s.db.QueryContext(ctx, q, append([]any{collection}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Add stores fields under a generated id.
func (s *SQLiteStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := s.newID()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Create stores fields under id if it is free.
// POST: Returns ErrAlreadyExists without writing if id is taken
func (s *SQLiteStore) Create(ctx context.Context, collection, id string, fields map[string]any) (err error) {
	defer s.observe("create", time.Now(), &err)
	if id == "" {
		return ErrEmptyID
	}
	body, err := marshalFields(fields)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(dateLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO document (collection, id, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(collection, id) DO NOTHING`,
		collection, id, body, now, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeCreated})
	return nil
}

// Set replaces or inserts the document at id.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, fields map[string]any) (err error) {
	defer s.observe("set", time.Now(), &err)
	if id == "" {
		return ErrEmptyID
	}
	body, err := marshalFields(fields)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(dateLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO document (collection, id, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET fields=excluded.fields, updated_at=excluded.updated_at`,
		collection, id, body, now, now)
	if err != nil {
		return err
	}
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeUpdated})
	return nil
}

// Update merges partial into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	return s.UpdateIf(ctx, collection, id, nil, partial)
}

// UpdateIf merges partial with a single guarded UPDATE.
// POST: Returns ErrNotFound or ErrPreconditionFailed without writing
func (s *SQLiteStore) UpdateIf(ctx context.Context, collection, id string, preconditions []Filter, partial map[string]any) (err error) {
	defer s.observe("update", time.Now(), &err)
	if id == "" {
		return ErrEmptyID
	}
	prepared, err := prepareFilters(preconditions)
	if err != nil {
		return err
	}
	where, args, err := compileFilters(prepared)
	if err != nil {
		return err
	}
	patch, err := marshalFields(partial)
	if err != nil {
		return err
	}
	q := "UPDATE document SET fields = json_patch(fields, ?), updated_at = ? WHERE collection = ? AND id = ?" + where
	all := append([]any{patch, s.now().UTC().Format(dateLayout), collection, id}, args...)
	res, err := s.db.ExecContext(ctx, q, all...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM document WHERE collection = ? AND id = ?", collection, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrPreconditionFailed
	}
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeUpdated})
	return nil
}

// Delete removes the document at id.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM document WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeDeleted})
	}
	return nil
}

// Subscribe opens a live query.
func (s *SQLiteStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func(Snapshot)) (Subscription, error) {
	return s.watcher.subscribe(ctx, collection, filters, fn)
}

func (s *SQLiteStore) observe(op string, start time.Time, err *error) {
	s.observer.ObserveStoreOp(op, time.Since(start), *err)
}

// compileFilters renders normalized filters as AND-ed SQL conditions.
func compileFilters(filters []Filter) (string, []any, error) {
	var b strings.Builder
	var args []any
	for _, f := range filters {
		path := "'$." + f.Field + "'"
		switch f.Op {
		case OpEq:
			if f.Value == nil {
				b.WriteString(" AND json_type(fields, " + path + ") = 'null'")
				continue
			}
			arg, err := sqlValue(f.Value)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(" AND json_extract(fields, " + path + ") = ?")
			args = append(args, arg)
		case OpIn:
			ph, vals, err := sqlList(f.Values)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(" AND json_extract(fields, " + path + ") IN (" + ph + ")")
			args = append(args, vals...)
		case OpArrayContains:
			arg, err := sqlValue(f.Value)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(" AND json_type(fields, " + path + ") = 'array' AND EXISTS (SELECT 1 FROM json_each(document.fields, " + path + ") AS e WHERE e.value = ?)")
			args = append(args, arg)
		case OpArrayContainsAny:
			ph, vals, err := sqlList(f.Values)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(" AND json_type(fields, " + path + ") = 'array' AND EXISTS (SELECT 1 FROM json_each(document.fields, " + path + ") AS e WHERE e.value IN (" + ph + "))")
			args = append(args, vals...)
		default:
			return "", nil, fmt.Errorf("%w: operator %d", ErrInvalidFilter, f.Op)
		}
	}
	return b.String(), args, nil
}

func sqlList(values []any) (string, []any, error) {
	ph := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		arg, err := sqlValue(v)
		if err != nil {
			return "", nil, err
		}
		ph[i] = "?"
		args[i] = arg
	}
	return strings.Join(ph, ", "), args, nil
}

// sqlValue converts a normalized scalar into the value json_extract yields.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case string, float64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return nil, fmt.Errorf("%w: only scalar operands are supported, got %T", ErrInvalidFilter, v)
	}
}

func marshalFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func scanDocument(scan func(dest ...any) error) (Document, error) {
	var doc Document
	var body, createdAt, updatedAt string
	if err := scan(&doc.ID, &body, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal([]byte(body), &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	doc.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	doc.UpdatedAt, _ = time.Parse(dateLayout, updatedAt)
	return doc, nil
}
