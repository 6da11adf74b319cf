// Package sqlite adapts the matched-column reporter to SQLite FTS5 over
// database/sql. Match decisions are never made in Go: each phrase/column pair
// is probed with a column-filtered MATCH against the engine, so tokenizer,
// case and diacritics behavior is exactly the table's own.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/nonibytes/matchedcols"
	"github.com/nonibytes/matchedcols/query"
)

// Searcher binds auxiliary functions to one FTS5 table on one connection.
type Searcher struct {
	db      *sql.DB
	table   string
	columns []string
	funcs   *matchedcols.Registry
}

// Hit is one matched row. Aux holds the text results of the auxiliary
// functions requested from Search, keyed by function name.
type Hit struct {
	RowID int64
	Aux   map[string]string
}

// Open verifies that the connection's SQLite build carries FTS5, introspects
// the columns of the named fts5 table and returns a Searcher with the
// matched_columns function pre-registered. A build without FTS5 yields a
// registration error; the caller decides whether that is fatal.
func Open(ctx context.Context, db *sql.DB, table string) (*Searcher, error) {
	if err := probeFTS5(ctx, db); err != nil {
		return nil, err
	}
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, matchedcols.RegistrationError(fmt.Sprintf("introspect table %s", table), err)
	}
	s := &Searcher{
		db:      db,
		table:   table,
		columns: cols,
		funcs:   matchedcols.NewRegistry(),
	}
	if err := s.funcs.Register(matchedcols.FuncName, matchedcols.MatchedColumns); err != nil {
		return nil, err
	}
	return s, nil
}

// probeFTS5 is the Go stand-in for obtaining the fts5_api handle: creating a
// throwaway fts5 table proves the module is compiled in.
func probeFTS5(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE VIRTUAL TABLE temp.matchedcols_probe USING fts5(x)"); err != nil {
		return matchedcols.RegistrationError("fts5 unavailable on this connection", err)
	}
	_, _ = db.ExecContext(ctx, "DROP TABLE temp.matchedcols_probe")
	return nil
}

// tableColumns returns the declared columns in table order. A zero-row select
// works for virtual tables across drivers, where PRAGMA table_info can not be
// relied on.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 0=1", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return cols, rows.Err()
}

// Columns returns the table's declared column names in index order.
func (s *Searcher) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Register binds an additional auxiliary function under name.
func (s *Searcher) Register(name string, fn matchedcols.AuxFunc) error {
	return s.funcs.Register(name, fn)
}

// Search runs the MATCH query and returns the matched rowids. For each name
// in auxNames the corresponding registered function is evaluated with zero
// arguments against that row's match context and its text result stored in
// Hit.Aux. Unknown names fail before any query runs.
func (s *Searcher) Search(ctx context.Context, match string, auxNames ...string) ([]Hit, error) {
	fns := make([]matchedcols.AuxFunc, len(auxNames))
	for i, name := range auxNames {
		fn, err := s.funcs.Lookup(name)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	var phrases []query.Phrase
	if len(auxNames) > 0 {
		var err error
		phrases, err = query.Phrases(match)
		if err != nil {
			return nil, matchedcols.Wrap(matchedcols.ErrQueryParse, "parse match expression", err)
		}
	}

	q := fmt.Sprintf("SELECT rowid FROM %s WHERE %s MATCH ?", quoteIdent(s.table), quoteIdent(s.table))
	rows, err := s.db.QueryContext(ctx, q, match)
	if err != nil {
		return nil, matchedcols.Wrap(matchedcols.ErrEngine, "match query", err)
	}
	defer rows.Close()

	var rowids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, matchedcols.Wrap(matchedcols.ErrEngine, "scan rowid", err)
		}
		rowids = append(rowids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, matchedcols.Wrap(matchedcols.ErrEngine, "match query", err)
	}

	hits := make([]Hit, 0, len(rowids))
	for _, id := range rowids {
		hit := Hit{RowID: id}
		if len(fns) > 0 {
			hit.Aux = make(map[string]string, len(fns))
			mc := &rowContext{ctx: ctx, s: s, phrases: phrases, rowid: id}
			for i, fn := range fns {
				v, err := fn(mc, nil)
				if err != nil {
					return nil, err
				}
				hit.Aux[auxNames[i]] = textValue(v)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Eval evaluates one registered auxiliary function against a single row. Any
// args are passed through to the function; matched_columns rejects them with
// an argument error before touching the match context. A rowid the query does
// not match yields an empty result, not an error.
func (s *Searcher) Eval(ctx context.Context, name, match string, rowid int64, args ...driver.Value) (string, error) {
	fn, err := s.funcs.Lookup(name)
	if err != nil {
		return "", err
	}
	phrases, err := query.Phrases(match)
	if err != nil {
		return "", matchedcols.Wrap(matchedcols.ErrQueryParse, "parse match expression", err)
	}
	mc := &rowContext{ctx: ctx, s: s, phrases: phrases, rowid: rowid}
	v, err := fn(mc, args)
	if err != nil {
		return "", err
	}
	return textValue(v), nil
}

func textValue(v driver.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
