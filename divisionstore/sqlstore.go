package divisionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
)

/*
sqlstore keeps divisions in a relational database. It is tested against
sqlite3 and used with postgres in production; the statements stick to the
dialect both accept, including $n placeholders.

Every transaction first bumps the book's row in outline_books. On postgres
that row lock serializes transactions on the same book while leaving other
books untouched. sqlite locks the whole database, which is coarser but has the
same effect; open it with _txlock=immediate so the lock is taken at begin.
*/

////////////////////////////////////////////////////////////////////////////////

const columns = `id, book_id, parent_id, sort_order, title, left_value, right_value, depth`

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore returns a division store backed by db, creating the schema if
// needed.
func NewSQLStore(ctx context.Context, db *sql.DB) (Store, error) {
	s := &sqlStore{db: db}
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) initialize(ctx context.Context) error {
	var maxApplied int64
	err := s.db.QueryRowContext(ctx, "select max(version) from schema_migrations").Scan(&maxApplied)
	if err == nil && maxApplied == 1 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
	create table if not exists divisions (
		id text primary key,
		book_id text not null,
		parent_id text,
		sort_order integer not null,
		title text not null,
		left_value integer not null,
		right_value integer not null,
		depth integer not null
	);

	create index if not exists divisions_book_left on divisions (book_id, left_value);
	create index if not exists divisions_book_depth on divisions (book_id, depth, sort_order);
	create index if not exists divisions_book_parent on divisions (book_id, parent_id, sort_order);

	create table if not exists outline_books (
		book_id text primary key,
		revision bigint not null default 0
	);

	create table if not exists schema_migrations (
		version bigint not null,
		timestamp text not null default current_timestamp
	);

	insert into schema_migrations (version) values (1);
	`); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the read helpers need.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDivision(row scanner) (division.Division, error) {
	var d division.Division
	var parent sql.NullString
	if err := row.Scan(&d.ID, &d.Book, &parent, &d.Order, &d.Title, &d.Left, &d.Right, &d.Depth); err != nil {
		return d, err
	}
	d.ParentID = division.ID(parent.String)
	return d, nil
}

func nullable(id division.ID) sql.NullString {
	return sql.NullString{String: string(id), Valid: id != ""}
}

func orderClause(ordering Ordering) string {
	if ordering == ByDepthOrder {
		return "order by depth, sort_order, id"
	}
	return "order by left_value, id"
}

func queryDivisions(ctx context.Context, q querier, query string, args ...any) ([]division.Division, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions: %w", err)
	}
	defer rows.Close()
	result := []division.Division{}
	for rows.Next() {
		d, err := scanDivision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan division: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read divisions: %w", err)
	}
	return result, nil
}

func getDivision(ctx context.Context, q querier, query string, args ...any) (division.Division, error) {
	d, err := scanDivision(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, ErrNotFound
		}
		return d, fmt.Errorf("failed to read division: %w", err)
	}
	return d, nil
}

func (s *sqlStore) Lookup(ctx context.Context, id division.ID) (division.Division, error) {
	return getDivision(ctx, s.db, `select `+columns+` from divisions where id = $1`, id)
}

func (s *sqlStore) Get(ctx context.Context, book string, id division.ID) (division.Division, error) {
	return getDivision(ctx, s.db, `select `+columns+` from divisions where id = $1 and book_id = $2`, id, book)
}

func (s *sqlStore) Scan(ctx context.Context, book string, ordering Ordering) ([]division.Division, error) {
	return queryDivisions(ctx, s.db, `select `+columns+` from divisions where book_id = $1 `+orderClause(ordering), book)
}

func (s *sqlStore) Within(ctx context.Context, book string, span nestedset.Span) ([]division.Division, error) {
	return queryDivisions(ctx, s.db, `
	select `+columns+` from divisions
	where book_id = $1 and left_value >= $2 and right_value <= $3
	order by left_value, id`, book, span.Left, span.Right)
}

func (s *sqlStore) Books(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select distinct book_id from divisions order by book_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()
	books := []string{}
	for rows.Next() {
		var book string
		if err := rows.Scan(&book); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (s *sqlStore) WithTx(ctx context.Context, book string, f func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `
	insert into outline_books (book_id, revision) values ($1, 0)
	on conflict (book_id) do nothing`, book); err != nil {
		return fmt.Errorf("failed to register book: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
	update outline_books set revision = revision + 1 where book_id = $1`, book); err != nil {
		return fmt.Errorf("failed to lock book: %w", err)
	}
	if err := f(&sqlTx{tx: tx, book: book}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx   *sql.Tx
	book string
}

func (t *sqlTx) Book() string {
	return t.book
}

func (t *sqlTx) Get(ctx context.Context, id division.ID) (division.Division, error) {
	return getDivision(ctx, t.tx, `select `+columns+` from divisions where id = $1 and book_id = $2`, id, t.book)
}

func (t *sqlTx) Scan(ctx context.Context, ordering Ordering) ([]division.Division, error) {
	return queryDivisions(ctx, t.tx, `select `+columns+` from divisions where book_id = $1 `+orderClause(ordering), t.book)
}

// parentClause matches parent_id against $n, treating an empty parent as the
// roots.
func parentClause(parent division.ID, n int) (string, []any) {
	if parent == "" {
		return "parent_id is null", nil
	}
	return fmt.Sprintf("parent_id = $%d", n), []any{parent}
}

func (t *sqlTx) Siblings(ctx context.Context, parent division.ID, exclude division.ID) (nestedset.Siblings, error) {
	clause, args := parentClause(parent, 3)
	var result nestedset.Siblings
	err := t.tx.QueryRowContext(ctx, `
	select count(*), coalesce(max(right_value), 0), coalesce(max(sort_order), 0)
	from divisions where book_id = $1 and id <> $2 and `+clause,
		append([]any{t.book, exclude}, args...)...,
	).Scan(&result.Count, &result.MaxRight, &result.MaxOrder)
	if err != nil {
		return result, fmt.Errorf("failed to summarize siblings: %w", err)
	}
	return result, nil
}

func (t *sqlTx) Displace(ctx context.Context, d nestedset.Displacement) error {
	if d.IsZero() {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, `
	update divisions set left_value = left_value + $1 where book_id = $2 and left_value >= $3`,
		d.By, t.book, d.At); err != nil {
		return fmt.Errorf("failed to displace left boundaries: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
	update divisions set right_value = right_value + $1 where book_id = $2 and right_value >= $3`,
		d.By, t.book, d.At); err != nil {
		return fmt.Errorf("failed to displace right boundaries: %w", err)
	}
	return nil
}

func (t *sqlTx) ShiftSpan(ctx context.Context, span nestedset.Span, offset int, depthDelta int) error {
	if _, err := t.tx.ExecContext(ctx, `
	update divisions
	set left_value = left_value + $1, right_value = right_value + $1, depth = depth + $2
	where book_id = $3 and left_value >= $4 and right_value <= $5`,
		offset, depthDelta, t.book, span.Left, span.Right); err != nil {
		return fmt.Errorf("failed to shift span: %w", err)
	}
	return nil
}

func (t *sqlTx) ShiftOrder(ctx context.Context, shift nestedset.OrderShift) error {
	clause, args := parentClause(shift.Parent, 6)
	if _, err := t.tx.ExecContext(ctx, `
	update divisions set sort_order = sort_order + $1
	where book_id = $2 and sort_order >= $3 and sort_order <= $4 and id <> $5 and `+clause,
		append([]any{shift.Delta, t.book, shift.From, shift.To, shift.Exclude}, args...)...,
	); err != nil {
		return fmt.Errorf("failed to shift sibling order: %w", err)
	}
	return nil
}

func (t *sqlTx) Insert(ctx context.Context, d division.Division) error {
	var exists int
	if err := t.tx.QueryRowContext(ctx, `select count(*) from divisions where id = $1`, d.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check division id: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	if _, err := t.tx.ExecContext(ctx, `
	insert into divisions (`+columns+`) values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, t.book, nullable(d.ParentID), d.Order, d.Title, d.Left, d.Right, d.Depth,
	); err != nil {
		return fmt.Errorf("failed to insert division: %w", err)
	}
	return nil
}

func (t *sqlTx) Update(ctx context.Context, d division.Division) error {
	result, err := t.tx.ExecContext(ctx, `
	update divisions
	set parent_id = $1, sort_order = $2, title = $3, left_value = $4, right_value = $5, depth = $6
	where id = $7 and book_id = $8`,
		nullable(d.ParentID), d.Order, d.Title, d.Left, d.Right, d.Depth, d.ID, t.book,
	)
	if err != nil {
		return fmt.Errorf("failed to update division: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update division: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqlTx) DeleteSpan(ctx context.Context, span nestedset.Span) (int, error) {
	result, err := t.tx.ExecContext(ctx, `
	delete from divisions where book_id = $1 and left_value >= $2 and right_value <= $3`,
		t.book, span.Left, span.Right)
	if err != nil {
		return 0, fmt.Errorf("failed to delete divisions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete divisions: %w", err)
	}
	return int(n), nil
}
