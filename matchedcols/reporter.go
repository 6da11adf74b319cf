package matchedcols

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// FuncName is the fixed name under which the matched-columns reporter is
// registered on a connection.
const FuncName = "matched_columns"

// Report returns a comma separated list of the column indexes matched by any
// phrase in mc, in order of first discovery: phrases are scanned in ascending
// index order and, within a phrase, columns in the order the engine adapter
// yields them. Each matched column appears exactly once no matter how many
// phrases touch it. Callers must not rely on the indexes being numerically
// sorted. If no phrase matched any column the result is the empty string.
func Report(mc MatchContext) (string, error) {
	nCols := mc.ColumnCount()
	if nCols < 0 {
		return "", New(ErrContext, fmt.Sprintf("negative column count %d", nCols))
	}
	seen := make([]bool, nCols)

	var out strings.Builder
	for phrase := 0; phrase < mc.PhraseCount(); phrase++ {
		it := mc.PhraseColumns(phrase)
		for it.Next() {
			col := it.Column()
			if col < 0 || col >= nCols {
				return "", New(ErrContext, fmt.Sprintf("phrase %d yielded column %d outside 0..%d", phrase, col, nCols-1))
			}
			if seen[col] {
				continue
			}
			seen[col] = true
			if out.Len() > 0 {
				out.WriteByte(',')
			}
			out.WriteString(strconv.Itoa(col))
		}
		if err := it.Err(); err != nil {
			return "", Wrap(ErrContext, fmt.Sprintf("iterate columns of phrase %d", phrase), err)
		}
	}
	return out.String(), nil
}

// AuxFunc is the calling convention for auxiliary functions: a function
// evaluated against one row's match context with the arguments it was given
// in the query, returning a SQL value or an error. Implementations must not
// retain mc beyond the call.
type AuxFunc func(mc MatchContext, args []driver.Value) (driver.Value, error)

// MatchedColumns is the AuxFunc form of Report. It declares zero arguments;
// the argument count is validated before the match context is touched.
func MatchedColumns(mc MatchContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 0 {
		return nil, ArgumentError(FuncName)
	}
	s, err := Report(mc)
	if err != nil {
		return nil, err
	}
	return s, nil
}
