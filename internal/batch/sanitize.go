package batch

import "math"

// Option configures a SanitizingWriter.
type Option func(*SanitizingWriter)

// WithFloatNullType sets the type bound for a non-finite float when the
// wrapped writer cannot report the column's declared type.
func WithFloatNullType(t SQLType) Option {
	return func(s *SanitizingWriter) { s.floatNull = t }
}

// WithDoubleNullType is the double counterpart of WithFloatNullType.
func WithDoubleNullType(t SQLType) Option {
	return func(s *SanitizingWriter) { s.doubleNull = t }
}

// SanitizingWriter binds NULL in place of NaN and infinite floating point
// values, which MySQL can neither store nor accept on the wire.
// All other setters go straight to the wrapped writer.
type SanitizingWriter struct {
	RowWriter
	floatNull  SQLType
	doubleNull SQLType
}

// NewSanitizingWriter wraps w. Without options a non-finite float is bound
// as a REAL null and a non-finite double as a DOUBLE null, unless w
// implements ColumnTyper, in which case the declared column type wins.
func NewSanitizingWriter(w RowWriter, opts ...Option) *SanitizingWriter {
	s := &SanitizingWriter{
		RowWriter:  w,
		floatNull:  Real,
		doubleNull: Double,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SanitizingWriter) SetFloat(v float32) error {
	if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
		return s.RowWriter.SetNull(s.nullType(s.floatNull))
	}
	return s.RowWriter.SetFloat(v)
}

func (s *SanitizingWriter) SetDouble(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.RowWriter.SetNull(s.nullType(s.doubleNull))
	}
	return s.RowWriter.SetDouble(v)
}

func (s *SanitizingWriter) nullType(fallback SQLType) SQLType {
	if ct, ok := s.RowWriter.(ColumnTyper); ok {
		if t, ok := ct.ColumnType(); ok && t != Other {
			return t
		}
	}
	return fallback
}

// SanitizeBatch applies a SanitizingWriter to the setters of b while
// keeping its batch lifecycle methods.
func SanitizeBatch(b BatchInsert, opts ...Option) BatchInsert {
	return &sanitizedBatch{
		BatchInsert: b,
		w:           NewSanitizingWriter(b, opts...),
	}
}

type sanitizedBatch struct {
	BatchInsert
	w *SanitizingWriter
}

func (b *sanitizedBatch) SetFloat(v float32) error {
	return b.w.SetFloat(v)
}

func (b *sanitizedBatch) SetDouble(v float64) error {
	return b.w.SetDouble(v)
}
