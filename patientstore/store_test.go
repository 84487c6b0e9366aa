package patientstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyfu-xl/SEML/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "patients.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRegister_CreatesRecord(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Register("478237423", 1, "1984-02-03", "ELIZABETH HOLMES"))

	rec, err := store.Get("478237423")
	require.NoError(t, err)
	require.NotNil(t, rec.Demographics)
	assert.Equal(t, "ELIZABETH HOLMES", rec.Demographics.Name)
	assert.Equal(t, "1984-02-03", rec.Demographics.DOB)
	assert.Equal(t, 1, rec.Demographics.Gender)
	assert.Empty(t, rec.TestHistory)
	assert.False(t, rec.Paged)
	assert.Nil(t, rec.PendingAlert)
}

func TestRegister_UpdatesDemographicsInPlace(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Register("100", 0, "1990-01-01", "OLD NAME"))
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	_, err := store.RecordResult("100", now, 88.0, now)
	require.NoError(t, err)

	require.NoError(t, store.Register("100", 0, "1990-01-02", "NEW NAME"))

	rec, err := store.Get("100")
	require.NoError(t, err)
	assert.Equal(t, "NEW NAME", rec.Demographics.Name)
	assert.Equal(t, "1990-01-02", rec.Demographics.DOB)
	assert.Len(t, rec.TestHistory, 1, "history preserved across re-registration")
}

func TestGet_UnknownPatient(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))
}

func TestRecordResult_UnknownPatient(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	_, err := store.RecordResult("missing", now, 100.0, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))
}

func TestRecordResult_FirstResultHasZeroInterval(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("478237423", 1, "1984-02-03", "ELIZABETH HOLMES"))

	observed := time.Date(2024, 1, 20, 22, 4, 3, 0, time.UTC)
	outcome, err := store.RecordResult("478237423", observed, 103.4, observed)
	require.NoError(t, err)
	assert.Zero(t, outcome.IntervalDays)
	assert.False(t, outcome.Normalized)

	rec, err := store.Get("478237423")
	require.NoError(t, err)
	require.Len(t, rec.TestHistory, 1)
	assert.Equal(t, TestResult{IntervalDays: 0, Value: 103.4}, rec.TestHistory[0])
	assert.True(t, rec.LastTestTime.Equal(observed))
}

func TestRecordResult_IntervalInDays(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("200", 0, "1970-06-01", "JOHN DOE"))

	first := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.RecordResult("200", first, 90.0, first)
	require.NoError(t, err)

	second := first.Add(36 * time.Hour)
	outcome, err := store.RecordResult("200", second, 95.0, second)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, outcome.IntervalDays, 1e-9)

	rec, err := store.Get("200")
	require.NoError(t, err)
	require.Len(t, rec.TestHistory, 2)
	assert.Zero(t, rec.TestHistory[0].IntervalDays)
	assert.InDelta(t, 1.5, rec.TestHistory[1].IntervalDays, 1e-9)
}

func TestRecordResult_OutOfOrderNormalizedToNow(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("300", 1, "1955-03-03", "JANE ROE"))

	first := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	_, err := store.RecordResult("300", first, 80.0, first)
	require.NoError(t, err)

	// A result observed before the stored last test time is accepted with
	// the wall clock substituted, not rejected.
	stale := first.Add(-48 * time.Hour)
	now := first.Add(12 * time.Hour)
	outcome, err := store.RecordResult("300", stale, 85.0, now)
	require.NoError(t, err)
	assert.True(t, outcome.Normalized)
	assert.InDelta(t, 0.5, outcome.IntervalDays, 1e-9)

	rec, err := store.Get("300")
	require.NoError(t, err)
	assert.True(t, rec.LastTestTime.Equal(now))
}

func TestHistory_FlattenedLengthAlwaysEven(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("400", 0, "2000-12-12", "EVEN PAIRS"))

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at = at.Add(6 * time.Hour)
		_, err := store.RecordResult("400", at, 70.0+float64(i), at)
		require.NoError(t, err)
	}

	rec, err := store.Get("400")
	require.NoError(t, err)
	// Every entry is one (interval, value) pair: flattened length 2*n.
	assert.Len(t, rec.TestHistory, 5)
	assert.Zero(t, rec.TestHistory[0].IntervalDays)
}

func TestMarkPendingAlert_IdempotentKeepsFirstEvent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("500", 1, "1980-01-01", "PENDING"))

	first := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkPendingAlert("500", first))
	require.NoError(t, store.MarkPendingAlert("500", first.Add(time.Hour)))

	rec, err := store.Get("500")
	require.NoError(t, err)
	require.NotNil(t, rec.PendingAlert)
	assert.True(t, rec.PendingAlert.Equal(first))

	pending, err := store.PendingAlerts()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "500", pending[0].MRN)
	assert.True(t, pending[0].EventTime.Equal(first))
}

func TestMarkPendingAlert_UnknownPatient(t *testing.T) {
	store := openTestStore(t)
	err := store.MarkPendingAlert("missing", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))
}

func TestConfirmPaged_SetsMonotonePagedAndClearsPending(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("600", 0, "1975-07-07", "PAGED"))
	require.NoError(t, store.MarkPendingAlert("600", time.Now()))

	require.NoError(t, store.ConfirmPaged("600"))

	rec, err := store.Get("600")
	require.NoError(t, err)
	assert.True(t, rec.Paged)
	assert.Nil(t, rec.PendingAlert)

	pending, err := store.PendingAlerts()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Confirming again is harmless and Paged stays true.
	require.NoError(t, store.ConfirmPaged("600"))
	rec, err = store.Get("600")
	require.NoError(t, err)
	assert.True(t, rec.Paged)
}

func TestConfirmPaged_UnknownPatient(t *testing.T) {
	store := openTestStore(t)
	err := store.ConfirmPaged("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))
}

func TestPendingAlerts_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.db")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Register("700", 1, "1992-09-09", "CRASHED"))
	eventTime := time.Date(2024, 5, 5, 5, 5, 5, 0, time.UTC)
	require.NoError(t, store.MarkPendingAlert("700", eventTime))
	require.NoError(t, store.Close())

	// Simulated crash and restart: the marker must still be there.
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.PendingAlerts()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "700", pending[0].MRN)
	assert.True(t, pending[0].EventTime.Equal(eventTime))
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Register("800", 0, "1960-06-06", "REMOVED"))
	require.NoError(t, store.MarkPendingAlert("800", time.Now()))

	require.NoError(t, store.Delete("800"))

	_, err := store.Get("800")
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))

	pending, err := store.PendingAlerts()
	require.NoError(t, err)
	assert.Empty(t, pending, "pending marker removed with the record")

	err = store.Delete("800")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownPatient))
}

func TestCount(t *testing.T) {
	store := openTestStore(t)
	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Register("900", 0, "1988-08-08", "ONE"))
	require.NoError(t, store.Register("901", 1, "1989-09-09", "TWO"))

	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
