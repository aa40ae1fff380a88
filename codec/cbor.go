package codec

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/kartikbazzad/bunbase/blocks/table"
)

const cborVersion = 1

// cborDocument stores a table column by column.
type cborDocument struct {
	Version int      `cbor:"v"`
	Columns []string `cbor:"columns"`
	Rows    int      `cbor:"rows"`
	Data    [][]any  `cbor:"data"`
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

type cborFormat struct{}

func (cborFormat) Name() string { return "cbor" }

func (cborFormat) Decode(r io.Reader, _ Options) (*table.Table, error) {
	var doc cborDocument
	if err := cborDec.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Version != cborVersion {
		return nil, fmt.Errorf("unsupported cbor block version %d", doc.Version)
	}
	if len(doc.Data) != len(doc.Columns) {
		return nil, fmt.Errorf("cbor block has %d columns but %d data arrays", len(doc.Columns), len(doc.Data))
	}
	for i, c := range doc.Data {
		if c == nil {
			doc.Data[i] = make([]any, 0, doc.Rows)
		}
	}
	return table.FromColumns(doc.Columns, doc.Data)
}

func (cborFormat) Encode(w io.Writer, t *table.Table, _ Options) error {
	doc := cborDocument{
		Version: cborVersion,
		Columns: t.Columns(),
		Rows:    t.NumRows(),
		Data:    make([][]any, t.NumColumns()),
	}
	for i := range doc.Data {
		doc.Data[i] = t.ColumnAt(i)
	}
	return cborEnc.NewEncoder(w).Encode(doc)
}
