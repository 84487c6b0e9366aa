package patientstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/andyfu-xl/SEML/errors"
)

// Seed file timestamp layouts. The historical export writes full
// timestamps; older extracts carry bare dates.
var seedTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadSeedCSV pre-populates the store from a historical results file.
//
// The file is patient-per-row: MRN in the first column, then alternating
// date/value pairs in chronological order; rows are ragged. A duplicate
// MRN within the file is a fatal load error (ErrDuplicateMRN). Existing
// records are left untouched so a restart does not clobber live state
// accumulated since the original seed.
//
// Returns the number of records inserted.
func (s *Store) LoadSeedCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WrapFatal(err, "Store", "LoadSeedCSV", "open seed file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, errors.WrapFatal(err, "Store", "LoadSeedCSV", "read seed file")
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	seen := make(map[string]struct{}, len(rows))
	records := make([]*Record, 0, len(rows)-1)
	for i, row := range rows[1:] { // skip header
		rec, err := seedRecord(row)
		if err != nil {
			return 0, errors.WrapFatal(
				fmt.Errorf("row %d: %w", i+2, err),
				"Store", "LoadSeedCSV", "parse row")
		}
		if rec == nil {
			continue
		}
		if _, dup := seen[rec.MRN]; dup {
			return 0, errors.WrapFatal(
				fmt.Errorf("%w: %s", errors.ErrDuplicateMRN, rec.MRN),
				"Store", "LoadSeedCSV", "uniqueness check")
		}
		seen[rec.MRN] = struct{}{}
		records = append(records, rec)
	}

	inserted := 0
	err = s.db.Update(func(tx *bolt.Tx) error {
		patients := tx.Bucket(bucketPatients)
		for _, rec := range records {
			if patients.Get([]byte(rec.MRN)) != nil {
				continue
			}
			encoded, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := patients.Put([]byte(rec.MRN), encoded); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, errors.WrapFatal(err, "Store", "LoadSeedCSV", "write records")
	}
	return inserted, nil
}

// seedRecord builds a Record from one seed row, converting the absolute
// test dates into the stored inter-test intervals. Returns nil for rows
// with no MRN.
func seedRecord(row []string) (*Record, error) {
	if len(row) == 0 || row[0] == "" {
		return nil, nil
	}

	rec := &Record{MRN: row[0]}
	var last time.Time
	for i := 1; i+1 < len(row); i += 2 {
		rawDate, rawValue := row[i], row[i+1]
		if rawDate == "" || rawValue == "" {
			continue
		}

		at, err := parseSeedTime(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad test date %q: %w", rawDate, err)
		}
		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return nil, fmt.Errorf("bad test value %q: %w", rawValue, err)
		}

		interval := 0.0
		if !last.IsZero() {
			interval = at.Sub(last).Hours() / hoursPerDay
		}
		rec.TestHistory = append(rec.TestHistory, TestResult{
			IntervalDays: interval,
			Value:        value,
		})
		last = at
	}
	rec.LastTestTime = last
	return rec, nil
}

// parseSeedTime tries the known seed timestamp layouts in order
func parseSeedTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range seedTimeLayouts {
		at, err := time.Parse(layout, raw)
		if err == nil {
			return at, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
