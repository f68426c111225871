package processor

import "context"

// RecordStore persists a single row into a named table. Implementations
// must surface the backend's error message text unmodified, because the
// classifier parses it.
type RecordStore interface {
	// InsertRecord writes one row and returns the identifier the store
	// assigned to it. columns and values are parallel slices.
	InsertRecord(ctx context.Context, table string, columns []string, values []interface{}) (int64, error)
}

// ErrorKind is the classification of a store error.
type ErrorKind int

const (
	// ErrorKindOther covers every failure the retry loop must not recover from.
	ErrorKindOther ErrorKind = iota
	// ErrorKindUnknownColumn is a rejection naming exactly one column the
	// target schema does not define.
	ErrorKindUnknownColumn
)

// ErrorClassifier inspects a store error and, for unknown-column
// rejections, extracts the offending column name. Backend-specific error
// formats stay behind this interface so the insert engine never sees them.
type ErrorClassifier interface {
	Classify(err error) (ErrorKind, string)
}
