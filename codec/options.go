package codec

import (
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

// Options is the complete set of settings a codec recognises. The zero value
// reads and writes every format with its defaults.
type Options struct {
	// Format overrides extension based detection (csv, tsv, json, cbor, msgpack).
	Format string `json:"format,omitempty"`
	// Compression overrides the suffix based codec (gzip, zstd, lz4, none).
	Compression string `json:"compression,omitempty"`
	// Columns limits reads to these columns, in this order.
	Columns []string `json:"columns,omitempty"`
	// Delimiter is the csv field separator, a single character.
	Delimiter string `json:"delimiter,omitempty"`
	// NoHeader marks csv input without a header row; columns are named c0, c1, ...
	// and writes omit the header.
	NoHeader bool `json:"no_header,omitempty"`
	// Dtype "string" reads every csv column as text instead of inferring types.
	Dtype string `json:"dtype,omitempty"`
	// NullValue is the csv token read as a missing value and written for one.
	NullValue string `json:"null_value,omitempty"`
}

const optionsSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "format":      {"type": "string", "enum": ["", "csv", "tsv", "json", "cbor", "msgpack"]},
    "compression": {"type": "string", "enum": ["", "none", "gzip", "zstd", "lz4"]},
    "columns":     {"type": "array", "items": {"type": "string", "minLength": 1}, "uniqueItems": true},
    "delimiter":   {"type": "string", "maxLength": 1},
    "no_header":   {"type": "boolean"},
    "dtype":       {"type": "string", "enum": ["", "infer", "string"]},
    "null_value":  {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(optionsSchema)

// ParseOptions validates a JSON options document against the options schema
// and decodes it. Unknown keys are rejected.
func ParseOptions(raw []byte) (Options, error) {
	var opts Options
	if len(strings.TrimSpace(string(raw))) == 0 {
		return opts, nil
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return opts, blockerrs.Invalid("options: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return opts, blockerrs.Invalid("options: %s", strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, blockerrs.Invalid("options: %v", err)
	}
	return opts, opts.Validate()
}

// Validate checks the record before it is dispatched to a codec.
func (o Options) Validate() error {
	switch o.Format {
	case "", "csv", "tsv", "json", "cbor", "msgpack":
	default:
		return blockerrs.Invalid("unknown format %q", o.Format)
	}
	switch o.Compression {
	case "", "none", "gzip", "zstd", "lz4":
	default:
		return blockerrs.Invalid("unknown compression %q", o.Compression)
	}
	switch o.Dtype {
	case "", "infer", "string":
	default:
		return blockerrs.Invalid("unknown dtype %q", o.Dtype)
	}
	if utf8.RuneCountInString(o.Delimiter) > 1 {
		return blockerrs.Invalid("delimiter must be a single character, got %q", o.Delimiter)
	}
	if o.Delimiter == "\n" || o.Delimiter == "\r" || o.Delimiter == "\"" {
		return blockerrs.Invalid("delimiter %q is not allowed", o.Delimiter)
	}
	seen := make(map[string]bool, len(o.Columns))
	for _, c := range o.Columns {
		if c == "" || seen[c] {
			return blockerrs.Invalid("columns must be non-empty and unique, got %q", c)
		}
		seen[c] = true
	}
	return nil
}

// Merge returns base with every field set in overlay replacing base's.
func Merge(base, overlay Options) Options {
	out := base
	if overlay.Format != "" {
		out.Format = overlay.Format
	}
	if overlay.Compression != "" {
		out.Compression = overlay.Compression
	}
	if overlay.Columns != nil {
		out.Columns = overlay.Columns
	}
	if overlay.Delimiter != "" {
		out.Delimiter = overlay.Delimiter
	}
	if overlay.NoHeader {
		out.NoHeader = true
	}
	if overlay.Dtype != "" {
		out.Dtype = overlay.Dtype
	}
	if overlay.NullValue != "" {
		out.NullValue = overlay.NullValue
	}
	return out
}
