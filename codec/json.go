package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kartikbazzad/bunbase/blocks/table"
)

// jsonFormat is newline delimited records: one flat object per row.
// Column order is the order keys are first seen; rows missing a key get nil.
type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Decode(r io.Reader, _ Options) (*table.Table, error) {
	var (
		names []string
		index = map[string]int{}
		cols  [][]any
		rows  int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		keys, values, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, k := range keys {
			c, ok := index[k]
			if !ok {
				c = len(names)
				index[k] = c
				names = append(names, k)
				cols = append(cols, make([]any, rows))
			}
			if len(cols[c]) > rows {
				return nil, fmt.Errorf("line %d: duplicate key %q", line, k)
			}
			cols[c] = append(cols[c], values[i])
		}
		rows++
		for c := range cols {
			if len(cols[c]) < rows {
				cols[c] = append(cols[c], nil)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cols == nil {
		cols = [][]any{}
	}
	return table.FromColumns(names, cols)
}

// decodeRecord reads one flat JSON object, keeping key order.
func decodeRecord(raw []byte) ([]string, []any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("record is not a JSON object")
	}

	var (
		keys   []string
		values []any
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, nil, err
		}
		v, err := jsonScalar(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func jsonScalar(tok any) (any, error) {
	switch x := tok.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case float64:
		// Integral numbers decode as int64 whichever token type carries them.
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	case json.Delim:
		return nil, errors.New("nested values are not supported")
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func (jsonFormat) Encode(w io.Writer, t *table.Table, _ Options) error {
	names := t.Columns()
	keys := make([][]byte, len(names))
	for i, n := range names {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		keys[i] = b
	}

	bw := bufio.NewWriter(w)
	var sb strings.Builder
	for r := 0; r < t.NumRows(); r++ {
		sb.Reset()
		sb.WriteByte('{')
		for c := range names {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.Write(keys[c])
			sb.WriteByte(':')
			v := t.ColumnAt(c)[r]
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			sb.Write(b)
		}
		sb.WriteString("}\n")
		if _, err := bw.WriteString(sb.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
