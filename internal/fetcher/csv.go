package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV from r and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV parses address book rows. The first row must be a header naming at
// least first_name and last_name. Blank rows are skipped.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.PersonAddress, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{HasHeader: true, HeaderCh: headerCh})

	var (
		ix     columnIndex
		out    = []model.PersonAddress{}
		line   = 1
		rowErr error
	)
	for row := range rowCh {
		line++
		if rowErr != nil {
			continue // drain
		}
		if ix == nil {
			var err error
			if ix, err = indexHeader(<-headerCh); err != nil {
				rowErr = err
				continue
			}
		}
		if blankRow(row) {
			continue
		}
		rec, err := ix.record(row, line)
		if err != nil {
			rowErr = err
			continue
		}
		out = append(out, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if rowErr != nil {
		return nil, rowErr
	}
	if ix == nil {
		select {
		case header := <-headerCh:
			if _, err := indexHeader(header); err != nil {
				return nil, err
			}
		default:
		}
	}
	return out, nil
}

// WriteCSV writes recs with a Columns header.
func WriteCSV(w io.Writer, recs []model.PersonAddress) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, rec := range recs {
		if err := cw.Write(recordRow(rec)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
