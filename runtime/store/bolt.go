package store

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

const bucketGlobals = "globals"

// ErrUnstorable is returned for values that cannot be persisted, such as
// elements and events.
var ErrUnstorable = errors.New("value cannot be persisted")

// Bolt is a global scope persisted in a bbolt database. Values are
// CBOR-encoded and limited to nil, bool, numbers, strings, lists and
// string-keyed maps.
type Bolt struct {
	db  *bolt.DB
	dec cbor.DecMode
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open globals store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketGlobals))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize globals store: %w", err)
	}
	dec, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}
	return &Bolt{db: db, dec: dec}, nil
}

// Close closes the database.
func (b *Bolt) Close() error { return b.db.Close() }

// Get returns a stored value. Read failures are reported as missing.
func (b *Bolt) Get(name string) (any, bool) {
	var value any
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketGlobals)).Get([]byte(name))
		if raw == nil {
			return nil
		}
		found = true
		return b.dec.Unmarshal(raw, &value)
	})
	if err != nil {
		return nil, false
	}
	return value, found
}

func (b *Bolt) Set(name string, value any) error {
	if err := storable(value); err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	raw, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %q: CBOR encoding failed: %w", name, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketGlobals)).Put([]byte(name), raw)
	})
}

func (b *Bolt) Delete(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketGlobals)).Delete([]byte(name))
	})
}

// Names returns stored names in key order.
func (b *Bolt) Names() []string {
	var names []string
	_ = b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketGlobals)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names
}

func storable(v any) error {
	switch val := v.(type) {
	case nil, bool, string, float64, int, int64:
		return nil
	case []any:
		for i, e := range val {
			if err := storable(e); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	case map[string]any:
		for k, e := range val {
			if err := storable(e); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnstorable, v)
}
