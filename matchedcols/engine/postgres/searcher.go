// Package postgres adapts the matched-column reporter to Postgres full text
// search, mirroring the sqlite adapter: per phrase/column pair the engine is
// probed with a tsvector/tsquery test, so stemming and normalization follow
// the chosen text search configuration. The ^ (initial token) marker has no
// Postgres equivalent and is ignored.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/matchedcols"
	"github.com/nonibytes/matchedcols/query"
)

// Options configure a Searcher over one table.
type Options struct {
	Table    string
	IDColumn string   // bigint key identifying rows; default "id"
	Columns  []string // text columns in index order; introspected when empty
	Config   string   // text search configuration; default "simple"
}

// Searcher binds auxiliary functions to one table on one connection.
type Searcher struct {
	db      *sql.DB
	table   string
	idCol   string
	cfg     string
	columns []string
	funcs   *matchedcols.Registry
}

// Hit is one matched row. Aux holds the text results of the auxiliary
// functions requested from Search, keyed by function name.
type Hit struct {
	ID  int64
	Aux map[string]string
}

// Connect opens a database/sql handle through the pgx stdlib driver.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open verifies that full text search works with the chosen configuration,
// resolves the table's text columns and returns a Searcher with the
// matched_columns function pre-registered.
func Open(ctx context.Context, db *sql.DB, opts Options) (*Searcher, error) {
	if opts.Table == "" {
		return nil, matchedcols.New(matchedcols.ErrRegistration, "table name required")
	}
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if opts.Config == "" {
		opts.Config = "simple"
	}
	if err := probeTextSearch(ctx, db, opts.Config); err != nil {
		return nil, err
	}
	cols := opts.Columns
	if len(cols) == 0 {
		var err error
		cols, err = textColumns(ctx, db, opts.Table)
		if err != nil {
			return nil, matchedcols.RegistrationError(fmt.Sprintf("introspect table %s", opts.Table), err)
		}
	}
	if len(cols) == 0 {
		return nil, matchedcols.RegistrationError(fmt.Sprintf("table %s has no text columns", opts.Table), nil)
	}
	s := &Searcher{
		db:      db,
		table:   opts.Table,
		idCol:   opts.IDColumn,
		cfg:     opts.Config,
		columns: cols,
		funcs:   matchedcols.NewRegistry(),
	}
	if err := s.funcs.Register(matchedcols.FuncName, matchedcols.MatchedColumns); err != nil {
		return nil, err
	}
	return s, nil
}

func probeTextSearch(ctx context.Context, db *sql.DB, cfg string) error {
	var ok bool
	err := db.QueryRowContext(ctx,
		"SELECT to_tsvector($1::regconfig, 'x') @@ phraseto_tsquery($1::regconfig, 'x')", cfg).Scan(&ok)
	if err != nil {
		return matchedcols.RegistrationError(fmt.Sprintf("full text search unavailable with configuration %q", cfg), err)
	}
	return nil
}

func textColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 AND data_type IN ('text', 'character varying', 'character')
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Columns returns the text column names in index order.
func (s *Searcher) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Register binds an additional auxiliary function under name.
func (s *Searcher) Register(name string, fn matchedcols.AuxFunc) error {
	return s.funcs.Register(name, fn)
}

// Search matches the query (websearch syntax) against the concatenated text
// columns and returns the matched ids. For each name in auxNames the
// registered function is evaluated with zero arguments against that row's
// match context. Aux evaluation parses the same query string, so it supports
// the shared bareword / quoted-phrase / OR subset of the two syntaxes.
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

	exprs := make([]string, len(s.columns))
	for i, c := range s.columns {
		exprs[i] = fmt.Sprintf("coalesce(%s, '')", quoteIdent(c))
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE to_tsvector($1::regconfig, concat_ws(' ', %s)) @@ websearch_to_tsquery($1::regconfig, $2) ORDER BY %s",
		quoteIdent(s.idCol), quoteIdent(s.table), strings.Join(exprs, ", "), quoteIdent(s.idCol))
	rows, err := s.db.QueryContext(ctx, q, s.cfg, match)
	if err != nil {
		return nil, matchedcols.Wrap(matchedcols.ErrEngine, "match query", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, matchedcols.Wrap(matchedcols.ErrEngine, "scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, matchedcols.Wrap(matchedcols.ErrEngine, "match query", err)
	}

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		hit := Hit{ID: id}
		if len(fns) > 0 {
			hit.Aux = make(map[string]string, len(fns))
			mc := &rowContext{ctx: ctx, s: s, phrases: phrases, id: id}
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

// Eval evaluates one registered auxiliary function against a single row.
func (s *Searcher) Eval(ctx context.Context, name, match string, id int64, args ...driver.Value) (string, error) {
	fn, err := s.funcs.Lookup(name)
	if err != nil {
		return "", err
	}
	phrases, err := query.Phrases(match)
	if err != nil {
		return "", matchedcols.Wrap(matchedcols.ErrQueryParse, "parse match expression", err)
	}
	mc := &rowContext{ctx: ctx, s: s, phrases: phrases, id: id}
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
