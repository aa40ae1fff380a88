package codec

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/kartikbazzad/bunbase/blocks/table"
)

type csvFormat struct {
	name  string
	comma rune
}

func (f csvFormat) Name() string { return f.name }

func (f csvFormat) delimiter(opts Options) rune {
	if opts.Delimiter != "" {
		r, _ := utf8.DecodeRuneInString(opts.Delimiter)
		return r
	}
	return f.comma
}

func (f csvFormat) Decode(r io.Reader, opts Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = f.delimiter(opts)
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	var names []string
	if opts.NoHeader {
		if len(records) > 0 {
			for i := range records[0] {
				names = append(names, "c"+strconv.Itoa(i))
			}
		}
	} else {
		if len(records) == 0 {
			return table.New()
		}
		names, records = records[0], records[1:]
	}

	cols := make([][]any, len(names))
	for c := range names {
		raw := make([]string, len(records))
		for r, rec := range records {
			raw[r] = rec[c]
		}
		if opts.Dtype == "string" {
			cols[c] = parseStrings(raw, opts.NullValue)
		} else {
			cols[c] = inferColumn(raw, opts.NullValue)
		}
	}
	return table.FromColumns(names, cols)
}

func (f csvFormat) Encode(w io.Writer, t *table.Table, opts Options) error {
	cw := csv.NewWriter(w)
	cw.Comma = f.delimiter(opts)

	if !opts.NoHeader {
		if err := cw.Write(t.Columns()); err != nil {
			return err
		}
	}
	rec := make([]string, t.NumColumns())
	for r := 0; r < t.NumRows(); r++ {
		for c := range rec {
			rec[c] = formatCell(t.ColumnAt(c)[r], opts.NullValue)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseStrings(raw []string, null string) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		if null != "" && s == null {
			continue
		}
		out[i] = s
	}
	return out
}

// inferColumn picks the narrowest of int64, float64, bool and string that
// parses every non-missing cell. Empty cells and the null token are nil.
func inferColumn(raw []string, null string) []any {
	missing := func(s string) bool { return s == "" || (null != "" && s == null) }

	kinds := []func(string) (any, bool){
		func(s string) (any, bool) {
			v, err := strconv.ParseInt(s, 10, 64)
			return v, err == nil
		},
		func(s string) (any, bool) {
			v, err := strconv.ParseFloat(s, 64)
			return v, err == nil
		},
		func(s string) (any, bool) {
			v, err := strconv.ParseBool(s)
			return v, err == nil && (s == "true" || s == "false" || s == "True" || s == "False")
		},
	}

	out := make([]any, len(raw))
next:
	for _, parse := range kinds {
		for i, s := range raw {
			if missing(s) {
				out[i] = nil
				continue
			}
			v, ok := parse(s)
			if !ok {
				continue next
			}
			out[i] = v
		}
		return out
	}
	for i, s := range raw {
		if missing(s) {
			out[i] = nil
		} else {
			out[i] = s
		}
	}
	return out
}

func formatCell(v any, null string) string {
	switch x := v.(type) {
	case nil:
		return null
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return null
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
