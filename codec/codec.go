// Package codec reads and writes tables from byte streams. The format is
// chosen from the file extension, optionally followed by a compression
// suffix: "part_00000.csv.gz" is gzip compressed csv.
//
// Supported formats:
//
//	.csv .tsv              delimited text with a header row
//	.json .jsonl .ndjson   one JSON object per line
//	.cbor                  column-major CBOR document
//	.msgpack .mpk          row-major MessagePack document
//
// Compression suffixes: .gz (gzip), .zst (zstd), .lz4 (lz4).
package codec

import (
	"fmt"
	"io"
	"path"
	"strings"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// Format encodes and decodes one table per stream.
type Format interface {
	Name() string
	Decode(r io.Reader, opts Options) (*table.Table, error)
	Encode(w io.Writer, t *table.Table, opts Options) error
}

var (
	formats = map[string]Format{}
	byName  = map[string]Format{}
)

// Register binds a format to one or more extensions (with leading dot).
func Register(f Format, exts ...string) {
	byName[f.Name()] = f
	for _, ext := range exts {
		formats[strings.ToLower(ext)] = f
	}
}

func init() {
	Register(csvFormat{name: "csv", comma: ','}, ".csv")
	Register(csvFormat{name: "tsv", comma: '\t'}, ".tsv")
	Register(jsonFormat{}, ".json", ".jsonl", ".ndjson")
	Register(cborFormat{}, ".cbor")
	Register(msgpackFormat{}, ".msgpack", ".mpk")
}

// splitExt returns the format extension and compression suffix of p.
func splitExt(p string) (name, ext, comp string) {
	name = path.Base(p)
	ext = strings.ToLower(path.Ext(name))
	if _, ok := compressions[ext]; ok {
		inner := strings.TrimSuffix(name, path.Ext(name))
		if innerExt := path.Ext(inner); innerExt != "" {
			comp = ext
			name = inner
			ext = strings.ToLower(innerExt)
		}
	}
	return strings.TrimSuffix(name, path.Ext(name)), ext, comp
}

// Stem is the file name without its format extension and compression suffix.
// It identifies an rgroup independently of how the file is encoded.
func Stem(p string) string {
	stem, _, _ := splitExt(p)
	return stem
}

// Detect returns the format and compression to use for p under opts.
func Detect(p string, opts Options) (Format, string, error) {
	_, ext, comp := splitExt(p)

	var f Format
	if opts.Format != "" {
		f = byName[opts.Format]
	} else {
		f = formats[ext]
	}
	if f == nil {
		return nil, "", fmt.Errorf("%w: %s", blockerrs.ErrUnknownFormat, p)
	}

	compression := compressions[comp]
	if opts.Compression != "" {
		compression = opts.Compression
	}
	if compression == "none" {
		compression = ""
	}
	return f, compression, nil
}

// Read decodes the table stored at p from r.
func Read(r io.Reader, p string, opts Options) (*table.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	f, compression, err := Detect(p, opts)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(r, compression)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", p, compression, err)
	}
	defer rc.Close()

	t, err := f.Decode(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", p, f.Name(), err)
	}
	if len(opts.Columns) > 0 {
		if t, err = t.Project(opts.Columns...); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return t, nil
}

// Write encodes t into w using the format for p.
func Write(w io.Writer, t *table.Table, p string, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	f, compression, err := Detect(p, opts)
	if err != nil {
		return err
	}
	if len(opts.Columns) > 0 {
		if t, err = t.Project(opts.Columns...); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	wc, err := compress(w, compression)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", p, compression, err)
	}
	if err := f.Encode(wc, t, opts); err != nil {
		wc.Close()
		return fmt.Errorf("%s: encode %s: %w", p, f.Name(), err)
	}
	return wc.Close()
}

// FormatName returns the format name for p, or "" when unknown.
func FormatName(p string, opts Options) string {
	f, _, err := Detect(p, opts)
	if err != nil {
		return ""
	}
	return f.Name()
}
