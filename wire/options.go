package wire

import "go.uber.org/zap"

// ReaderOption configures a BlockReader, following the teacher's
// functional-options idiom (stream.WithMaxPayload / WithCRCVerification).
type ReaderOption func(*BlockReader)

// WithLogger attaches a structured logger to a BlockReader. It is used
// to surface the single per-lifetime "extra bytes left in scope"
// warning (§7); a nil logger (the default) disables logging entirely.
func WithLogger(log *zap.Logger) ReaderOption {
	return func(r *BlockReader) {
		r.Log = log
	}
}

// WithReaderVersion sets the reader's declared version, bounding which
// blocks are read: a block is skipped-as-unreadable if its
// MinVersion exceeds this value (§6 "Block version discipline").
func WithReaderVersion(v uint8) ReaderOption {
	return func(r *BlockReader) {
		r.ReaderVersion = v
	}
}

// WriterOption configures a BlockWriter.
type WriterOption func(*BlockWriter)

// WithPointVersion selects the point encoding a BlockWriter's caller
// intends to emit (v1 vs v2, §6). It does not change how WriteBlock
// itself behaves since the point encoding is chosen per-call by the
// block package; it exists so callers have a single place to record
// their writer-wide default.
func WithPointVersion(v uint8) WriterOption {
	return func(w *BlockWriter) {
		w.PointVersion = v
	}
}
