package codec

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kartikbazzad/bunbase/blocks/table"
)

// msgpackDocument stores a table row by row, the native serialisation used
// for tables that are produced and consumed by this package only.
type msgpackDocument struct {
	Columns []string `msgpack:"columns"`
	Rows    [][]any  `msgpack:"rows"`
}

type msgpackFormat struct{}

func (msgpackFormat) Name() string { return "msgpack" }

func (msgpackFormat) Decode(r io.Reader, _ Options) (*table.Table, error) {
	var doc msgpackDocument
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	for i, row := range doc.Rows {
		if len(row) != len(doc.Columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(doc.Columns))
		}
	}
	return table.FromRows(doc.Columns, doc.Rows)
}

func (msgpackFormat) Encode(w io.Writer, t *table.Table, _ Options) error {
	doc := msgpackDocument{
		Columns: t.Columns(),
		Rows:    make([][]any, t.NumRows()),
	}
	for r := range doc.Rows {
		doc.Rows[r] = t.Row(r)
	}
	return msgpack.NewEncoder(w).Encode(&doc)
}
