package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"protobook/internal/book"
	"protobook/internal/config"
)

// Preprocess runs the host protocol: decode `[context, book]` from in,
// process the book and encode it to out.
func Preprocess(ctx context.Context, fs afero.Fs, in io.Reader, out io.Writer, log logrus.FieldLogger, lookup config.LookupFunc) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	bookCtx, b, err := book.Decode(in)
	if err != nil {
		return nil, err
	}
	if !book.CheckVersion(bookCtx.MdbookVersion) {
		log.WithFields(logrus.Fields{
			"supported": book.SupportedVersion,
			"host":      bookCtx.MdbookVersion,
		}).Warn("The protobook preprocessor was built against a different mdbook version")
	}

	cfg, err := config.FromContext(bookCtx.Raw, bookCtx.Root, lookup)
	if err != nil {
		return nil, err
	}

	p := New(cfg, fs, log, "preprocess")
	res, err := p.Process(ctx, b)
	if err != nil {
		return nil, err
	}

	data, err := book.Encode(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode book: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write book: %w", err)
	}

	p.report.Finalize()
	p.report.Log(log)
	return res, nil
}
