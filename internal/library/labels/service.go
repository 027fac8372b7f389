package labels

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

type Service struct {
	repo  Repository
	tx    db.TxRunner
	clock clock.Clock
	log   *zap.Logger
}

func NewService(repo Repository, tx db.TxRunner, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{repo: repo, tx: tx, clock: clk, log: log.Named("labels")}
}

// Export renders the labels of every book matching f as CSV.
func (s *Service) Export(ctx context.Context, f books.Filter, opts Options) (*File, error) {
	var rows []Row
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.Rows(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, rows, opts); err != nil {
		return nil, err
	}
	s.log.Info("exported shelf labels", zap.Int("rows", len(rows)), zap.String("encoding", string(opts.Encoding)))

	return &File{
		Name:        "book-labels-" + clock.Today(s.clock).Format("20060102") + ".csv",
		ContentType: opts.Encoding.contentType(),
		Rows:        len(rows),
		Data:        buf.Bytes(),
	}, nil
}

// writeCSV writes the rows as CSV. With cp932 the output matches what Windows
// calls "ANSI"; characters outside Shift_JIS are replaced.
func writeCSV(dst io.Writer, rows []Row, opts Options) error {
	var out io.Writer = dst
	var tw *transform.Writer
	if opts.Encoding == EncodingCP932 {
		tw = transform.NewWriter(dst, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		out = tw
	}

	w := csv.NewWriter(out)
	if opts.Header {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}
