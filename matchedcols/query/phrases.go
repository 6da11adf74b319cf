// Package query enumerates the phrases of an FTS5 MATCH expression. The
// engine reports per-phrase match state but Go drivers cannot read the parsed
// query back, so adapters lex the expression themselves. Lexing stays at the
// syntax level (quotes, operators, filters); tokenization of the phrase text
// is left entirely to the engine.
package query

import (
	"fmt"
	"strings"
	"unicode"
)

// Phrase is one phrase of a MATCH expression, in query order. A bareword is a
// single-term phrase, a quoted string is one phrase whose content the engine
// tokenizes, and terms joined with + form one multi-term phrase. Phrases on
// every side of AND/OR/NOT and inside NEAR groups are all enumerated, which
// matches how the engine numbers them.
type Phrase struct {
	Terms   []string // raw term text; quoted-string content kept verbatim
	Prefix  bool     // trailing *: last token matches as a prefix
	Caret   bool     // leading ^: must match the first token of the column
	Columns []string // column filter; empty means all columns
	Exclude bool     // filter names excluded columns (leading -)
}

// Match renders the phrase as a standalone MATCH snippet. Terms are always
// quoted so the engine re-tokenizes exactly the original text.
func (p Phrase) Match() string {
	var sb strings.Builder
	if p.Caret {
		sb.WriteByte('^')
	}
	for i, t := range p.Terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(t, `"`, `""`))
		sb.WriteByte('"')
	}
	if p.Prefix {
		sb.WriteByte('*')
	}
	return sb.String()
}

// AppliesTo reports whether the phrase's column filter lets it match the
// named column. Names compare case-insensitively, as the engine compares them.
func (p Phrase) AppliesTo(column string) bool {
	if len(p.Columns) == 0 {
		return true
	}
	hit := false
	for _, c := range p.Columns {
		if strings.EqualFold(c, column) {
			hit = true
			break
		}
	}
	if p.Exclude {
		return !hit
	}
	return hit
}

type filter struct {
	columns []string
	exclude bool
}

type lexer struct {
	input []rune
	pos   int
}

// Phrases lexes a MATCH expression into its ordered phrase list. Operators
// (AND, OR, NOT, parentheses) are consumed but contribute no phrases; column
// filters and ^ attach to the phrase or group they precede. Malformed input
// is an error.
func Phrases(input string) ([]Phrase, error) {
	l := &lexer{input: []rune(input)}
	var phrases []Phrase

	var pending *filter // filter for the next phrase or group
	var stack []*filter // active filter per open paren
	caret := false

	active := func() *filter {
		if pending != nil {
			return pending
		}
		if len(stack) > 0 {
			return stack[len(stack)-1]
		}
		return nil
	}
	emit := func(ph Phrase) {
		if caret {
			ph.Caret = true
			caret = false
		}
		if f := active(); f != nil {
			ph.Columns = f.columns
			ph.Exclude = f.exclude
		}
		pending = nil
		phrases = append(phrases, ph)
	}

	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			break
		}
		ch := l.input[l.pos]

		switch {
		case ch == '(':
			l.pos++
			stack = append(stack, active())
			pending = nil

		case ch == ')':
			l.pos++
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", l.pos-1)
			}
			stack = stack[:len(stack)-1]

		case ch == '^':
			l.pos++
			caret = true

		case ch == '-' || ch == '{':
			exclude := ch == '-'
			if exclude {
				l.pos++
			}
			f, err := l.scanFilter()
			if err != nil {
				return nil, err
			}
			f.exclude = exclude
			pending = f

		case ch == '"':
			term, err := l.scanString()
			if err != nil {
				return nil, err
			}
			ph, err := l.scanPhrase(term)
			if err != nil {
				return nil, err
			}
			emit(ph)

		case isWordRune(ch):
			word := l.scanWord()
			switch {
			case word == "AND" || word == "OR" || word == "NOT":
				// boolean operator, no phrase of its own
			case word == "NEAR" && l.peekNonSpace() == '(':
				// the filter in force covers every phrase of the group
				f := active()
				pending = nil
				groupEmit := func(ph Phrase) {
					if f != nil {
						ph.Columns = f.columns
						ph.Exclude = f.exclude
					}
					phrases = append(phrases, ph)
				}
				if err := l.scanNear(groupEmit); err != nil {
					return nil, err
				}
			case l.peekNonSpace() == ':':
				l.skipSpace()
				l.pos++ // ':'
				pending = &filter{columns: []string{word}}
			default:
				ph, err := l.scanPhrase(word)
				if err != nil {
					return nil, err
				}
				emit(ph)
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", ch, l.pos)
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("unbalanced '('")
	}
	return phrases, nil
}

// scanPhrase collects a phrase starting from an already scanned first term:
// an immediate * marks a prefix phrase, and + joins further terms into the
// same phrase.
func (l *lexer) scanPhrase(first string) (Phrase, error) {
	ph := Phrase{Terms: []string{first}}
	ph.Prefix = l.consumeStar()
	for {
		save := l.pos
		l.skipSpace()
		if l.pos >= len(l.input) || l.input[l.pos] != '+' {
			l.pos = save
			return ph, nil
		}
		l.pos++
		l.skipSpace()
		var term string
		switch {
		case l.pos < len(l.input) && l.input[l.pos] == '"':
			t, err := l.scanString()
			if err != nil {
				return Phrase{}, err
			}
			term = t
		case l.pos < len(l.input) && isWordRune(l.input[l.pos]):
			term = l.scanWord()
		default:
			return Phrase{}, fmt.Errorf("expected term after '+' at offset %d", l.pos)
		}
		ph.Terms = append(ph.Terms, term)
		if l.consumeStar() {
			ph.Prefix = true
		}
	}
}

// scanNear consumes a NEAR(...) group, emitting each argument phrase. The
// optional trailing ", N" distance is consumed and discarded: it constrains
// proximity, not which phrases exist.
func (l *lexer) scanNear(emit func(Phrase)) error {
	l.skipSpace()
	l.pos++ // '('
	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			return fmt.Errorf("unterminated NEAR group")
		}
		switch ch := l.input[l.pos]; {
		case ch == ')':
			l.pos++
			return nil
		case ch == ',':
			l.pos++
			l.skipSpace()
			for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
				l.pos++
			}
		case ch == '"':
			term, err := l.scanString()
			if err != nil {
				return err
			}
			ph, err := l.scanPhrase(term)
			if err != nil {
				return err
			}
			emit(ph)
		case isWordRune(ch):
			ph, err := l.scanPhrase(l.scanWord())
			if err != nil {
				return err
			}
			emit(ph)
		default:
			return fmt.Errorf("unexpected character %q in NEAR group at offset %d", ch, l.pos)
		}
	}
}

// scanFilter parses a column filter: either a single column name or a braced
// list, each followed by ':'.
func (l *lexer) scanFilter() (*filter, error) {
	var cols []string
	if l.pos < len(l.input) && l.input[l.pos] == '{' {
		l.pos++
		for {
			l.skipSpace()
			if l.pos >= len(l.input) {
				return nil, fmt.Errorf("unterminated column list")
			}
			if l.input[l.pos] == '}' {
				l.pos++
				break
			}
			if !isWordRune(l.input[l.pos]) {
				return nil, fmt.Errorf("unexpected character %q in column list at offset %d", l.input[l.pos], l.pos)
			}
			cols = append(cols, l.scanWord())
		}
	} else {
		if l.pos >= len(l.input) || !isWordRune(l.input[l.pos]) {
			return nil, fmt.Errorf("expected column name at offset %d", l.pos)
		}
		cols = append(cols, l.scanWord())
	}
	l.skipSpace()
	if l.pos >= len(l.input) || l.input[l.pos] != ':' {
		return nil, fmt.Errorf("expected ':' after column filter at offset %d", l.pos)
	}
	l.pos++
	if len(cols) == 0 {
		return nil, fmt.Errorf("empty column list")
	}
	return &filter{columns: cols}, nil
}

// scanString consumes a double-quoted string; a doubled quote escapes one.
func (l *lexer) scanString() (string, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '"' {
				sb.WriteRune('"')
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return "", fmt.Errorf("unterminated string")
}

func (l *lexer) scanWord() string {
	start := l.pos
	for l.pos < len(l.input) && isWordRune(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *lexer) consumeStar() bool {
	if l.pos < len(l.input) && l.input[l.pos] == '*' {
		l.pos++
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) peekNonSpace() rune {
	pos := l.pos
	for pos < len(l.input) && unicode.IsSpace(l.input[pos]) {
		pos++
	}
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

// isWordRune mirrors the engine's bareword rules: alphanumerics, underscore
// and any codepoint above 127.
func isWordRune(r rune) bool {
	return r == '_' || r > 127 || unicode.IsLetter(r) || unicode.IsDigit(r)
}
