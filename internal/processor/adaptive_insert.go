package processor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"laborgrow/internal/logger"
	"laborgrow/internal/tracing"
)

// OutcomeClass says how an insert attempt sequence ended.
type OutcomeClass int

const (
	// OutcomeSuccess means a row was written and the store confirmed its id.
	OutcomeSuccess OutcomeClass = iota
	// OutcomeWriteUnconfirmed means the store accepted the write but
	// returned no identifier. Treated as fatal, not retried.
	OutcomeWriteUnconfirmed
	// OutcomeSchemaMismatchExhausted means every candidate column was
	// rejected and the record became empty.
	OutcomeSchemaMismatchExhausted
	// OutcomeRetriesExhausted means the attempt ceiling was hit before
	// success or exhaustion.
	OutcomeRetriesExhausted
	// OutcomeFatal covers any store error that is not an unknown-column
	// rejection.
	OutcomeFatal
)

func (c OutcomeClass) String() string {
	switch c {
	case OutcomeSuccess:
		return "success"
	case OutcomeWriteUnconfirmed:
		return "write-unconfirmed"
	case OutcomeSchemaMismatchExhausted:
		return "schema-mismatch-exhausted"
	case OutcomeRetriesExhausted:
		return "retries-exhausted"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// InsertOutcome carries the result of a schema-tolerant insert: the new
// row id and attempts consumed on success, or the last error and its
// classification on failure.
type InsertOutcome struct {
	Class          OutcomeClass
	ID             int64
	Attempts       int
	Err            error
	RemovedColumns []string
}

// Succeeded reports whether a row was written and confirmed.
func (o InsertOutcome) Succeeded() bool {
	return o.Class == OutcomeSuccess
}

// AdaptiveInserter persists candidate records against a store whose
// schema is not known in advance. On each unknown-column rejection it
// strips exactly the named column and retries, up to a fixed ceiling.
type AdaptiveInserter struct {
	store      RecordStore
	classifier ErrorClassifier
	tracer     trace.Tracer
}

func NewAdaptiveInserter(store RecordStore, classifier ErrorClassifier) *AdaptiveInserter {
	return &AdaptiveInserter{
		store:      store,
		classifier: classifier,
		tracer:     otel.Tracer("laborgrow/processor"),
	}
}

// Insert runs the retry loop against table. The record shrinks by at most
// one column per failed attempt; previously stripped columns are never
// re-added. maxAttempts bounds the number of store calls regardless of
// record size.
func (a *AdaptiveInserter) Insert(ctx context.Context, table string, rec *CandidateRecord, maxAttempts int) InsertOutcome {
	ctx, span := a.tracer.Start(ctx, "AdaptiveInserter.Insert",
		trace.WithAttributes(
			attribute.String("db.table", table),
			tracing.IntAttr("record.columns", rec.Len()),
			tracing.IntAttr("max_attempts", maxAttempts),
		))
	defer span.End()

	var removed []string
	var lastErr error
	attempt := 0

	for attempt < maxAttempts && rec.Len() > 0 {
		id, err := a.store.InsertRecord(ctx, table, rec.Columns(), rec.Values())
		if err == nil {
			if id == 0 {
				// The store took the write but gave back nothing to confirm
				// it. Retrying could double-insert, so fail hard.
				err := newWriteUnconfirmedError(table, attempt+1)
				tracing.RecordError(span, err)
				return InsertOutcome{Class: OutcomeWriteUnconfirmed, Attempts: attempt + 1, Err: err, RemovedColumns: removed}
			}
			span.SetAttributes(tracing.IntAttr("attempts", attempt+1), attribute.Int64("row.id", id))
			if len(removed) > 0 {
				logger.Info().Str("table", table).Strs("removed_columns", removed).Int("attempts", attempt+1).Msg("Insert succeeded after stripping unknown columns")
			}
			return InsertOutcome{Class: OutcomeSuccess, ID: id, Attempts: attempt + 1, RemovedColumns: removed}
		}

		kind, column := a.classifier.Classify(err)
		if kind != ErrorKindUnknownColumn {
			tracing.RecordError(span, err)
			return InsertOutcome{Class: OutcomeFatal, Attempts: attempt + 1, Err: err, RemovedColumns: removed}
		}

		if !rec.Remove(column) {
			// The backend named a column we did not send. Stripping blindly
			// would loop forever on the same error.
			tracing.RecordError(span, err)
			return InsertOutcome{
				Class:          OutcomeFatal,
				Attempts:       attempt + 1,
				Err:            fmt.Errorf("store rejected column %q not present in record: %w", column, err),
				RemovedColumns: removed,
			}
		}
		removed = append(removed, column)
		lastErr = err
		attempt++
		logger.Debug().Str("table", table).Str("column", column).Int("attempt", attempt).Msg("Stripped unknown column, retrying insert")
	}

	if rec.Len() == 0 {
		err := newSchemaExhaustedError(table, attempt, lastErr)
		tracing.RecordError(span, err)
		return InsertOutcome{Class: OutcomeSchemaMismatchExhausted, Attempts: attempt, Err: err, RemovedColumns: removed}
	}

	err := newRetriesExhaustedError(table, attempt, lastErr)
	tracing.RecordError(span, err)
	return InsertOutcome{Class: OutcomeRetriesExhausted, Attempts: attempt, Err: err, RemovedColumns: removed}
}
