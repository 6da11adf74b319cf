package sqlite_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nonibytes/matchedcols"
	"github.com/nonibytes/matchedcols/engine/sqlite"
	_ "modernc.org/sqlite"
)

// columns: FirstName=0, LastName=1, Address=2
var people = []struct {
	rowid                int64
	first, last, address string
}{
	{1, "Elmer", "Fudd", "456 Elm Avenue, Oakville"},
	{2, "Emily", "Anderson", "555 Elm Street, Rivertown"},
	{3, "Daniel", "Hill", "444 Hill Street, Springfield"},
	{4, "Grace", "Porter", "12 Birch Road, Lakeside"},
}

func newSearcher(t *testing.T) (*sqlite.Searcher, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath).Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE VIRTUAL TABLE people USING fts5(FirstName, LastName, Address, tokenize='unicode61')"); err != nil {
		t.Fatalf("create fts table: %v", err)
	}
	for _, p := range people {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO people(rowid, FirstName, LastName, Address) VALUES(?, ?, ?, ?)",
			p.rowid, p.first, p.last, p.address); err != nil {
			t.Fatalf("insert row %d: %v", p.rowid, err)
		}
	}

	s, err := sqlite.Open(ctx, db, "people")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, db
}

func parseSet(t *testing.T, s string) map[int]bool {
	t.Helper()
	set := map[int]bool{}
	if s == "" {
		return set
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			t.Fatalf("non-numeric element %q in %q: %v", part, s, err)
		}
		if set[n] {
			t.Fatalf("duplicate element %d in %q", n, s)
		}
		set[n] = true
	}
	return set
}

func assertSet(t *testing.T, got string, want ...int) {
	t.Helper()
	set := parseSet(t, got)
	if len(set) != len(want) {
		t.Fatalf("expected columns %v, got %q", want, got)
	}
	for _, c := range want {
		if !set[c] {
			t.Fatalf("column %d missing from %q", c, got)
		}
	}
}

func TestMatchedColumnsPrefixQuery(t *testing.T) {
	s, _ := newSearcher(t)
	ctx := context.Background()

	hits, err := s.Search(ctx, "Elm*", matchedcols.FuncName)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	byRow := map[int64]string{}
	for _, h := range hits {
		byRow[h.RowID] = h.Aux[matchedcols.FuncName]
	}
	// Elmer: FirstName and Address; Emily: Address only
	assertSet(t, byRow[1], 0, 2)
	assertSet(t, byRow[2], 2)
}

func TestMatchedColumnsMultiColumnTerm(t *testing.T) {
	s, _ := newSearcher(t)

	got, err := s.Eval(context.Background(), matchedcols.FuncName, "Hill", 3)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	assertSet(t, got, 1, 2)
}

func TestMatchedColumnsEveryColumn(t *testing.T) {
	s, _ := newSearcher(t)

	// each phrase below touches the Daniel row; together they cover all columns,
	// and Hill and Street each match more than one
	got, err := s.Eval(context.Background(), matchedcols.FuncName, "Daniel OR Hill OR Street", 3)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	assertSet(t, got, 0, 1, 2)
}

func TestMatchedColumnsColumnFilteredPhrase(t *testing.T) {
	s, _ := newSearcher(t)

	// Hill restricted to LastName must not report the Address match
	got, err := s.Eval(context.Background(), matchedcols.FuncName, "LastName : Hill", 3)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	assertSet(t, got, 1)
}

func TestMatchedColumnsQuotedPhrase(t *testing.T) {
	s, _ := newSearcher(t)

	got, err := s.Eval(context.Background(), matchedcols.FuncName, `"456 Elm Avenue"`, 1)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	assertSet(t, got, 2)
}

func TestMatchedColumnsNonMatchingRow(t *testing.T) {
	s, _ := newSearcher(t)

	got, err := s.Eval(context.Background(), matchedcols.FuncName, "Elm*", 4)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty result for non-matching row, got %q", got)
	}
}

func TestMatchedColumnsRejectsArguments(t *testing.T) {
	s, _ := newSearcher(t)

	_, err := s.Eval(context.Background(), matchedcols.FuncName, "Hill", 3, driver.Value("extra"))
	if err == nil || !matchedcols.IsKind(err, matchedcols.ErrArgument) {
		t.Fatalf("expected argument error, got: %v", err)
	}
}

func TestSearchWithoutAuxFunctions(t *testing.T) {
	s, _ := newSearcher(t)

	hits, err := s.Search(context.Background(), "Hill")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].RowID != 3 {
		t.Fatalf("expected the Daniel row, got %v", hits)
	}
	if hits[0].Aux != nil {
		t.Fatalf("expected no aux results, got %v", hits[0].Aux)
	}
}

func TestSearchUnknownFunction(t *testing.T) {
	s, _ := newSearcher(t)

	_, err := s.Search(context.Background(), "Hill", "no_such_function")
	if err == nil || !matchedcols.IsKind(err, matchedcols.ErrRegistration) {
		t.Fatalf("expected registration error, got: %v", err)
	}
}

func TestSearchBadMatchExpression(t *testing.T) {
	s, _ := newSearcher(t)

	_, err := s.Search(context.Background(), `"unterminated`, matchedcols.FuncName)
	if err == nil || !matchedcols.IsKind(err, matchedcols.ErrQueryParse) {
		t.Fatalf("expected query parse error, got: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s, _ := newSearcher(t)

	err := s.Register(matchedcols.FuncName, matchedcols.MatchedColumns)
	if err == nil || !matchedcols.IsKind(err, matchedcols.ErrRegistration) {
		t.Fatalf("expected registration error, got: %v", err)
	}
}

func TestOpenMissingTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath).Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	_, err = sqlite.Open(context.Background(), db, "nope")
	if err == nil || !matchedcols.IsKind(err, matchedcols.ErrRegistration) {
		t.Fatalf("expected registration error, got: %v", err)
	}
}

func TestColumns(t *testing.T) {
	s, _ := newSearcher(t)

	cols := s.Columns()
	want := []string{"FirstName", "LastName", "Address"}
	if len(cols) != len(want) {
		t.Fatalf("expected %v, got %v", want, cols)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cols)
		}
	}
}
