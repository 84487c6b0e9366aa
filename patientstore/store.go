package patientstore

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/andyfu-xl/SEML/errors"
)

// Bucket layout. Pending alerts live in their own bucket so the startup
// reconciliation scan touches only patients awaiting a page, not the whole
// population.
var (
	bucketPatients      = []byte("patients")
	bucketPendingAlerts = []byte("pending_alerts")
)

const hoursPerDay = 24

// Store is the durable per-MRN patient record store, backed by a single
// embedded bbolt file. All mutations run inside bbolt write transactions,
// which serializes them; the store is safe for concurrent use.
//
// Store performs no logging: outcomes and errors are returned to the
// orchestrator, which logs and meters at its boundary.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the patient database at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.WrapFatal(err, "Store", "Open", "open database file")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPatients); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketPendingAlerts)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "Store", "Open", "create buckets")
	}

	return &Store{db: db}, nil
}

// Close releases the database file handle
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "Store", "Close", "close database")
	}
	return nil
}

// Register creates the record for mrn if absent, or updates its
// demographics in place if present. Registration never rejects based on
// history state: results may have arrived before the admission message.
func (s *Store) Register(mrn string, gender int, dob, name string) error {
	return s.update(mrn, true, func(rec *Record) error {
		rec.Demographics = &Demographics{Name: name, DOB: dob, Gender: gender}
		return nil
	})
}

// Get returns the record for mrn, or ErrUnknownPatient
func (s *Store) Get(mrn string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPatients).Get([]byte(mrn))
		if raw == nil {
			return errors.ErrUnknownPatient
		}
		rec = &Record{}
		return json.Unmarshal(raw, rec)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Store", "Get", "load record")
	}
	return rec, nil
}

// RecordResult appends a creatinine result to the patient's history.
//
// The first result of a patient is stored with interval 0. Later results
// store the interval in days since the previous accepted result. An
// observation time earlier than the stored last test time is not rejected:
// the current wall clock (now) is substituted and the outcome is flagged
// Normalized so the caller can meter it. Fails with ErrUnknownPatient when
// no record exists.
func (s *Store) RecordResult(mrn string, observedAt time.Time, value float64, now time.Time) (ResultOutcome, error) {
	var outcome ResultOutcome
	err := s.update(mrn, false, func(rec *Record) error {
		effective := observedAt
		if !rec.LastTestTime.IsZero() && observedAt.Before(rec.LastTestTime) {
			effective = now
			outcome.Normalized = true
		}

		if len(rec.TestHistory) > 0 {
			outcome.IntervalDays = effective.Sub(rec.LastTestTime).Hours() / hoursPerDay
		}
		rec.TestHistory = append(rec.TestHistory, TestResult{
			IntervalDays: outcome.IntervalDays,
			Value:        value,
		})
		rec.LastTestTime = effective
		return nil
	})
	if err != nil {
		return ResultOutcome{}, errors.Wrap(err, "Store", "RecordResult", "append result")
	}
	return outcome, nil
}

// MarkPendingAlert records that mrn awaits a page for the event at
// eventTime. Idempotent: a second positive prediction while an alert is
// already pending keeps the original event time.
func (s *Store) MarkPendingAlert(mrn string, eventTime time.Time) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		patients := tx.Bucket(bucketPatients)
		raw := patients.Get([]byte(mrn))
		if raw == nil {
			return errors.ErrUnknownPatient
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if rec.PendingAlert != nil {
			return nil
		}
		rec.PendingAlert = &eventTime

		encoded, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		if err := patients.Put([]byte(mrn), encoded); err != nil {
			return err
		}
		return tx.Bucket(bucketPendingAlerts).Put(
			[]byte(mrn), []byte(eventTime.Format(time.RFC3339Nano)))
	})
	return errors.Wrap(err, "Store", "MarkPendingAlert", "persist marker")
}

// ConfirmPaged marks mrn as successfully paged and clears its pending
// alert. Paged is monotone: once set it stays set. Fails with
// ErrUnknownPatient when no record exists.
func (s *Store) ConfirmPaged(mrn string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		patients := tx.Bucket(bucketPatients)
		raw := patients.Get([]byte(mrn))
		if raw == nil {
			return errors.ErrUnknownPatient
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec.Paged = true
		rec.PendingAlert = nil

		encoded, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		if err := patients.Put([]byte(mrn), encoded); err != nil {
			return err
		}
		return tx.Bucket(bucketPendingAlerts).Delete([]byte(mrn))
	})
	return errors.Wrap(err, "Store", "ConfirmPaged", "persist confirmation")
}

// PendingAlerts returns every (mrn, event time) pair whose page delivery
// has not been confirmed. Used at startup to re-seed the paging queue, so
// a crash between prediction and confirmed delivery cannot drop an alert.
func (s *Store) PendingAlerts() ([]PendingAlert, error) {
	var pending []PendingAlert
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPendingAlerts).ForEach(func(k, v []byte) error {
			at, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil {
				return fmt.Errorf("corrupt pending alert for %s: %w", k, err)
			}
			pending = append(pending, PendingAlert{MRN: string(k), EventTime: at})
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "Store", "PendingAlerts", "scan markers")
	}
	return pending, nil
}

// Delete removes the record for mrn entirely. Administrative use only:
// discharge does not delete. Fails with ErrUnknownPatient when absent.
func (s *Store) Delete(mrn string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		patients := tx.Bucket(bucketPatients)
		if patients.Get([]byte(mrn)) == nil {
			return errors.ErrUnknownPatient
		}
		if err := patients.Delete([]byte(mrn)); err != nil {
			return err
		}
		return tx.Bucket(bucketPendingAlerts).Delete([]byte(mrn))
	})
	return errors.Wrap(err, "Store", "Delete", "remove record")
}

// Count returns the number of patient records
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPatients).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "Store", "Count", "read stats")
	}
	return n, nil
}

// update loads the record for mrn, applies fn, and writes it back within
// one transaction. createIfAbsent seeds an empty record for new MRNs;
// otherwise a missing record is ErrUnknownPatient.
func (s *Store) update(mrn string, createIfAbsent bool, fn func(*Record) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		patients := tx.Bucket(bucketPatients)
		raw := patients.Get([]byte(mrn))

		var rec Record
		switch {
		case raw != nil:
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
		case createIfAbsent:
			rec = Record{MRN: mrn}
		default:
			return errors.ErrUnknownPatient
		}

		if err := fn(&rec); err != nil {
			return err
		}

		encoded, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return patients.Put([]byte(mrn), encoded)
	})
}
