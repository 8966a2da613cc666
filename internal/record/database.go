package record

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	recordsBucketName = "records"
	configBucketName  = "config"

	appVersionKey = "app_version"

	// MaxRecordsPerUser is the hard ceiling on records a single user may
	// own. The database enforces it inside the create transaction; the
	// service layer also pre-checks it for immediate feedback.
	MaxRecordsPerUser = 25
)

// DB defines the interface for the persistence collaborator
type DB interface {
	// CreateRecord inserts a new record for a user, enforcing the
	// per-user ceiling. Returns ErrLimitExceeded when the user already
	// owns MaxRecordsPerUser records.
	CreateRecord(userID string, rec *ReturnRecord) error

	// SaveRecord writes an existing record for a user
	SaveRecord(userID string, rec *ReturnRecord) error

	// GetRecord retrieves a record by ID for a user
	GetRecord(userID, id string) (*ReturnRecord, error)

	// ListRecords returns all records owned by a user. Scalar fields
	// only; image bytes live in Storage and are fetched by ID.
	ListRecords(userID string) ([]*ReturnRecord, error)

	// DeleteRecord removes a record for a user
	DeleteRecord(userID, id string) error

	// CountRecords returns how many records a user owns
	CountRecords(userID string) (int, error)

	// AppVersion returns the app_version string from the config surface
	AppVersion() (string, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Each user's records
// live in a nested bucket keyed by user ID under the records bucket.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance and seeds the config surface
// with the given app version
func NewBoltDB(path, appVersion string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(recordsBucketName)); err != nil {
			return err
		}
		config, err := tx.CreateBucketIfNotExists([]byte(configBucketName))
		if err != nil {
			return err
		}
		return config.Put([]byte(appVersionKey), []byte(appVersion))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// userBucket returns the nested bucket holding one user's records. In a
// writable transaction the bucket is created on demand; in a read-only
// transaction it may be nil.
func userBucket(tx *bbolt.Tx, userID string) (*bbolt.Bucket, error) {
	records := tx.Bucket([]byte(recordsBucketName))
	if tx.Writable() {
		return records.CreateBucketIfNotExists([]byte(userID))
	}
	return records.Bucket([]byte(userID)), nil
}

// CreateRecord inserts a new record, enforcing the per-user ceiling
// atomically with the write
func (b *BoltDB) CreateRecord(userID string, rec *ReturnRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		if bucket.Stats().KeyN >= MaxRecordsPerUser {
			return ErrLimitExceeded
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(rec.ID), data)
	})
}

// SaveRecord writes an existing record
func (b *BoltDB) SaveRecord(userID string, rec *ReturnRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(rec.ID), data)
	})
}

// GetRecord retrieves a record by ID
func (b *BoltDB) GetRecord(userID, id string) (*ReturnRecord, error) {
	var rec *ReturnRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return ErrNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns all records owned by a user
func (b *BoltDB) ListRecords(userID string) ([]*ReturnRecord, error) {
	records := make([]*ReturnRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec ReturnRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes a record
func (b *BoltDB) DeleteRecord(userID, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

// CountRecords returns how many records a user owns
func (b *BoltDB) CountRecords(userID string) (int, error) {
	count := 0
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AppVersion returns the app_version string from the config bucket
func (b *BoltDB) AppVersion() (string, error) {
	var version string
	err := b.db.View(func(tx *bbolt.Tx) error {
		config := tx.Bucket([]byte(configBucketName))
		data := config.Get([]byte(appVersionKey))
		if data == nil {
			return fmt.Errorf("app_version not set")
		}
		version = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return version, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
