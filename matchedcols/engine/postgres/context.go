package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/nonibytes/matchedcols"
	"github.com/nonibytes/matchedcols/query"
)

// rowContext implements matchedcols.MatchContext for one (query, id) pair.
type rowContext struct {
	ctx     context.Context
	s       *Searcher
	phrases []query.Phrase
	id      int64
}

func (m *rowContext) ColumnCount() int { return len(m.s.columns) }

func (m *rowContext) PhraseCount() int { return len(m.phrases) }

func (m *rowContext) PhraseColumns(phrase int) matchedcols.ColumnIter {
	if phrase < 0 || phrase >= len(m.phrases) {
		return &columnIter{err: matchedcols.New(matchedcols.ErrContext, fmt.Sprintf("phrase index %d out of range", phrase))}
	}
	return &columnIter{m: m, phrase: m.phrases[phrase], col: -1}
}

type columnIter struct {
	m      *rowContext
	phrase query.Phrase
	next   int
	col    int
	err    error
}

func (it *columnIter) Next() bool {
	if it.err != nil {
		return false
	}
	for it.next < len(it.m.s.columns) {
		c := it.next
		it.next++
		name := it.m.s.columns[c]
		if !it.phrase.AppliesTo(name) {
			continue
		}
		ok, err := it.m.probe(name, it.phrase)
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			it.col = c
			return true
		}
	}
	return false
}

func (it *columnIter) Column() int { return it.col }

func (it *columnIter) Err() error { return it.err }

// probe asks the engine whether the phrase matches the row within a single
// column. Plain phrases go through phraseto_tsquery; prefix phrases need an
// explicit lexeme query carrying the :* marker.
func (m *rowContext) probe(column string, p query.Phrase) (bool, error) {
	queryFn := "phraseto_tsquery($1::regconfig, $2)"
	arg := strings.Join(p.Terms, " ")
	if p.Prefix {
		queryFn = "to_tsquery($1::regconfig, $2)"
		arg = prefixTSQuery(p)
	}
	q := fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE to_tsvector($1::regconfig, coalesce(%s, '')) @@ %s AND %s = $3",
		quoteIdent(m.s.table), quoteIdent(column), queryFn, quoteIdent(m.s.idCol))
	var n int
	if err := m.s.db.QueryRowContext(m.ctx, q, m.s.cfg, arg, m.id).Scan(&n); err != nil {
		return false, matchedcols.Wrap(matchedcols.ErrEngine, fmt.Sprintf("probe column %s", column), err)
	}
	return n > 0, nil
}

// prefixTSQuery renders a prefix phrase as a to_tsquery expression: lexemes
// chained with <-> and the last one marked :*.
func prefixTSQuery(p query.Phrase) string {
	var lexemes []string
	for _, term := range p.Terms {
		for _, w := range strings.Fields(term) {
			lexemes = append(lexemes, quoteLexeme(w))
		}
	}
	if len(lexemes) == 0 {
		return "''"
	}
	lexemes[len(lexemes)-1] += ":*"
	return strings.Join(lexemes, " <-> ")
}

func quoteLexeme(w string) string {
	w = strings.ReplaceAll(w, `\`, `\\`)
	w = strings.ReplaceAll(w, `'`, `''`)
	return "'" + w + "'"
}
