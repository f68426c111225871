package processor

import (
	"errors"
	"fmt"
)

var (
	ErrWriteUnconfirmed        = errors.New("write accepted but unconfirmed by store")
	ErrSchemaMismatchExhausted = errors.New("every candidate column was rejected")
	ErrRetriesExhausted        = errors.New("insert attempt ceiling reached")
)

// JobInsertError reports a failed schema-tolerant insert with enough
// context to log and to surface the backend's own message to the caller.
type JobInsertError struct {
	Table    string
	Attempts int
	BaseErr  error
	Detail   string
}

func (e *JobInsertError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (table:%s, attempts:%d): %s", e.BaseErr, e.Table, e.Attempts, e.Detail)
	}
	return fmt.Sprintf("%s (table:%s, attempts:%d)", e.BaseErr, e.Table, e.Attempts)
}

func (e *JobInsertError) Unwrap() error {
	return e.BaseErr
}

func (e *JobInsertError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newWriteUnconfirmedError(table string, attempts int) error {
	return &JobInsertError{
		Table:    table,
		Attempts: attempts,
		BaseErr:  ErrWriteUnconfirmed,
		Detail:   "store returned no row identifier",
	}
}

func newSchemaExhaustedError(table string, attempts int, lastErr error) error {
	detail := ""
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return &JobInsertError{
		Table:    table,
		Attempts: attempts,
		BaseErr:  ErrSchemaMismatchExhausted,
		Detail:   detail,
	}
}

func newRetriesExhaustedError(table string, attempts int, lastErr error) error {
	detail := ""
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return &JobInsertError{
		Table:    table,
		Attempts: attempts,
		BaseErr:  ErrRetriesExhausted,
		Detail:   detail,
	}
}
