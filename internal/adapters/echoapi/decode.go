package echoapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/text/encoding/charmap"

	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
)

// bodyReader remembers the first read failure that is not EOF
// so a cut connection is told apart from a malformed payload
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && b.err == nil {
		b.err = err
	}
	return n, err
}

// decodeJSON streams a JSON array of objects into a Table
// Columns follow the key order of the first object
func decodeJSON(r io.Reader) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return table.Empty(), nil
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "read json payload")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, perr.JSONErrf("expected a json array, got %v", tok)
	}

	var (
		cols []string
		rows []table.Row
	)
	for dec.More() {
		row, keys, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		if cols == nil {
			cols = keys
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "read json array end")
	}
	return table.New(cols, rows), nil
}

func decodeObject(dec *json.Decoder) (table.Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, perr.Wrap(err, perr.ErrorCodeJSON, "read json row")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, perr.JSONErrf("expected a json object row, got %v", tok)
	}
	row := table.Row{}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, perr.Wrap(err, perr.ErrorCodeJSON, "read json key")
		}
		k, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, perr.Wrapf(err, perr.ErrorCodeJSON, "read json value for %s", k)
		}
		if _, seen := row[k]; !seen {
			keys = append(keys, k)
		}
		row[k] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, perr.Wrap(err, perr.ErrorCodeJSON, "read json row end")
	}
	return row, keys, nil
}

// decodeCSV reads an ISO-8859-1 CSV payload with a header row
func decodeCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table.Empty(), nil
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read csv header")
	}

	var rows []table.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read csv record")
		}
		row := make(table.Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return table.New(header, rows), nil
}
