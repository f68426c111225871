package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStore replays a fixed sequence of results, one per InsertRecord
// call, and records the column set of every call.
type scriptedStore struct {
	results []storeResult
	calls   [][]string
}

type storeResult struct {
	id  int64
	err error
}

func rejectColumn(name string) storeResult {
	return storeResult{err: fmt.Errorf("Error 1054 (42S22): Unknown column '%s' in 'field list'", name)}
}

func (s *scriptedStore) InsertRecord(ctx context.Context, table string, columns []string, values []interface{}) (int64, error) {
	cols := make([]string, len(columns))
	copy(cols, columns)
	s.calls = append(s.calls, cols)
	if len(s.calls) > len(s.results) {
		return 0, fmt.Errorf("unscripted call %d", len(s.calls))
	}
	r := s.results[len(s.calls)-1]
	return r.id, r.err
}

func recordOf(columns ...string) *CandidateRecord {
	rec := &CandidateRecord{}
	for i, c := range columns {
		rec.add(c, i+1, false)
	}
	return rec
}

func newTestInserter(store RecordStore) *AdaptiveInserter {
	return NewAdaptiveInserter(store, NewMySQLErrorClassifier())
}

func TestInsertSucceedsFirstAttempt(t *testing.T) {
	store := &scriptedStore{results: []storeResult{{id: 7}}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b"), 15)

	require.True(t, outcome.Succeeded())
	assert.Equal(t, int64(7), outcome.ID)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, outcome.RemovedColumns)
	assert.Equal(t, [][]string{{"a", "b"}}, store.calls)
}

func TestInsertStripsRejectedColumnsThenSucceeds(t *testing.T) {
	// record = {a,b,c}, max 5: reject b, reject a, succeed with id=42.
	store := &scriptedStore{results: []storeResult{
		rejectColumn("b"),
		rejectColumn("a"),
		{id: 42},
	}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b", "c"), 5)

	require.Equal(t, OutcomeSuccess, outcome.Class)
	assert.Equal(t, int64(42), outcome.ID)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, []string{"b", "a"}, outcome.RemovedColumns)

	require.Len(t, store.calls, 3)
	assert.Equal(t, []string{"a", "b", "c"}, store.calls[0])
	assert.Equal(t, []string{"a", "c"}, store.calls[1])
	assert.Equal(t, []string{"c"}, store.calls[2])
}

func TestInsertRemovesExactlyOneColumnPerAttempt(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		rejectColumn("a"),
		rejectColumn("b"),
		rejectColumn("c"),
		{id: 1},
	}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b", "c", "d"), 15)

	require.Equal(t, OutcomeSuccess, outcome.Class)
	for i := 1; i < len(store.calls); i++ {
		assert.Len(t, store.calls[i], len(store.calls[i-1])-1)
	}
}

func TestInsertSchemaMismatchExhausted(t *testing.T) {
	// record = {a}, max 3: rejecting a empties the record. The store must
	// not be called again with an empty record.
	store := &scriptedStore{results: []storeResult{rejectColumn("a")}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a"), 3)

	require.Equal(t, OutcomeSchemaMismatchExhausted, outcome.Class)
	assert.ErrorIs(t, outcome.Err, ErrSchemaMismatchExhausted)
	assert.Len(t, store.calls, 1)
}

func TestInsertRetriesExhausted(t *testing.T) {
	// record = {a,b}, max 1: the single allowed attempt is consumed
	// without success.
	store := &scriptedStore{results: []storeResult{rejectColumn("a")}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b"), 1)

	require.Equal(t, OutcomeRetriesExhausted, outcome.Class)
	assert.ErrorIs(t, outcome.Err, ErrRetriesExhausted)
	assert.Contains(t, outcome.Err.Error(), "Unknown column 'a'")
	assert.Len(t, store.calls, 1)
}

func TestInsertFatalOnNonSchemaError(t *testing.T) {
	connRefused := errors.New("dial tcp 10.0.0.3:3306: connect: connection refused")
	store := &scriptedStore{results: []storeResult{
		rejectColumn("b"),
		{err: connRefused},
	}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b", "c"), 15)

	require.Equal(t, OutcomeFatal, outcome.Class)
	assert.ErrorIs(t, outcome.Err, connRefused)
	assert.Len(t, store.calls, 2)
}

func TestInsertWriteUnconfirmedIsFatal(t *testing.T) {
	store := &scriptedStore{results: []storeResult{{id: 0}}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b"), 15)

	require.Equal(t, OutcomeWriteUnconfirmed, outcome.Class)
	assert.ErrorIs(t, outcome.Err, ErrWriteUnconfirmed)
	assert.Len(t, store.calls, 1)
}

func TestInsertFatalWhenRejectedColumnNotInRecord(t *testing.T) {
	store := &scriptedStore{results: []storeResult{rejectColumn("ghost")}}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf("a", "b"), 15)

	require.Equal(t, OutcomeFatal, outcome.Class)
	assert.Contains(t, outcome.Err.Error(), "ghost")
	assert.Len(t, store.calls, 1)
}

func TestInsertConsumesAllFifteenAttempts(t *testing.T) {
	cols := make([]string, 20)
	results := make([]storeResult, 15)
	for i := range cols {
		cols[i] = fmt.Sprintf("col_%02d", i)
	}
	for i := range results {
		results[i] = rejectColumn(cols[i])
	}
	store := &scriptedStore{results: results}
	outcome := newTestInserter(store).Insert(context.Background(), "jobs", recordOf(cols...), 15)

	require.Equal(t, OutcomeRetriesExhausted, outcome.Class)
	assert.Equal(t, 15, outcome.Attempts)
	assert.Len(t, store.calls, 15)
}

func TestClassifierExtractsColumnName(t *testing.T) {
	classifier := NewMySQLErrorClassifier()

	kind, col := classifier.Classify(errors.New("Error 1054 (42S22): Unknown column 'latitude' in 'field list'"))
	assert.Equal(t, ErrorKindUnknownColumn, kind)
	assert.Equal(t, "latitude", col)

	// Hosted frontends sometimes rephrase the driver text.
	kind, col = classifier.Classify(errors.New(`unknown column named 'location'`))
	assert.Equal(t, ErrorKindUnknownColumn, kind)
	assert.Equal(t, "location", col)

	kind, _ = classifier.Classify(errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'jobs.PRIMARY'"))
	assert.Equal(t, ErrorKindOther, kind)

	kind, _ = classifier.Classify(nil)
	assert.Equal(t, ErrorKindOther, kind)
}

func TestNormalizeJobRecordWithoutCoordinates(t *testing.T) {
	req := &JobPostingRequest{
		Title:           "Welder",
		CompanyName:     "Iron Works",
		Openings:        3,
		JobCity:         "Pune",
		TotalExperience: "2-4 years",
		SalaryMin:       18000,
		SalaryMax:       25000,
		OffersBonus:     true,
		RequiredSkills:  []string{"MIG", "TIG"},
		ContactEmail:    "hr@ironworks.example",
		ContactPhone:    "+91-2000000000",
		HiringSpeed:     "urgent",
		HiringFrequency: "monthly",
	}
	rec := NormalizeJobRecord(req, "owner-1", nil, nil)

	cols := rec.Columns()
	assert.NotContains(t, cols, "location")
	assert.NotContains(t, cols, "lat")
	assert.NotContains(t, cols, "latitude")
	assert.Contains(t, cols, "employer_id")
	assert.Contains(t, cols, "required_skills")

	// Skills are stored as a JSON array string.
	for i, c := range cols {
		if c == "required_skills" {
			assert.Equal(t, `["MIG","TIG"]`, rec.Values()[i])
		}
	}
}

func TestNormalizeJobRecordEmitsSpeculativeGeoColumns(t *testing.T) {
	lat, lng := 18.5204, 73.8567
	req := &JobPostingRequest{Title: "Electrician", JobCity: "Pune", Openings: 1}
	rec := NormalizeJobRecord(req, "owner-1", &lat, &lng)

	cols := rec.Columns()
	assert.Contains(t, cols, "location")
	assert.Contains(t, cols, "lat")
	assert.Contains(t, cols, "lng")
	assert.Contains(t, cols, "latitude")
	assert.Contains(t, cols, "longitude")

	for i, c := range cols {
		if c == "location" {
			assert.Equal(t, "POINT(73.856700 18.520400)", rec.Values()[i])
		}
	}
}

func TestNormalizeJobRecordExplicitCoordinatesWin(t *testing.T) {
	reqLat, reqLng := 12.9716, 77.5946
	resLat, resLng := 18.5204, 73.8567
	req := &JobPostingRequest{Title: "Driver", JobCity: "Bengaluru", Latitude: &reqLat, Longitude: &reqLng}
	rec := NormalizeJobRecord(req, "owner-1", &resLat, &resLng)

	for i, c := range rec.Columns() {
		if c == "lat" {
			assert.Equal(t, reqLat, rec.Values()[i])
		}
		if c == "lng" {
			assert.Equal(t, reqLng, rec.Values()[i])
		}
	}
}

func TestCandidateRecordShrinksMonotonically(t *testing.T) {
	rec := recordOf("a", "b", "c")
	require.Equal(t, 3, rec.Len())

	assert.True(t, rec.Remove("b"))
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, []string{"a", "c"}, rec.Columns())

	// Removing an absent column is a no-op.
	assert.False(t, rec.Remove("b"))
	assert.Equal(t, 2, rec.Len())
}
