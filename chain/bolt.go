package chain

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt is a chain stored in a bolt database. Location "a/b" is the
// bucket b nested in the top level bucket a; every key of that bucket
// holds one series.
type Bolt struct {
	db   *bolt.DB
	path string
}

// OpenBolt opens a bolt chain file read-only.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening chain %s: %w", path, err)
	}
	return &Bolt{db: db, path: path}, nil
}

// splitLocation converts a location into bucket names.
func splitLocation(location string) (names [][]byte) {
	for _, s := range strings.Split(location, "/") {
		if s != "" {
			names = append(names, []byte(s))
		}
	}
	return
}

// bucket descends into the nested buckets of location.
func bucket(tx *bolt.Tx, location string) *bolt.Bucket {
	names := splitLocation(location)
	if len(names) == 0 {
		return nil
	}
	b := tx.Bucket(names[0])
	for _, name := range names[1:] {
		if b == nil {
			return nil
		}
		b = b.Bucket(name)
	}
	return b
}

// Has reports whether the bucket path exists.
func (c *Bolt) Has(location string) (found bool) {
	c.db.View(func(tx *bolt.Tx) error {
		found = bucket(tx, location) != nil
		return nil
	})
	return
}

// Keys returns series keys in byte order. Nested buckets are skipped.
func (c *Bolt) Keys(location string) (keys []string, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := bucket(tx, location)
		if b == nil {
			return fmt.Errorf("%s: no table at %q", c.path, location)
		}
		return b.ForEach(func(k, v []byte) error {
			if v != nil {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	return
}

// Read decodes the series stored for key.
func (c *Bolt) Read(location, key string) (series []float64, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := bucket(tx, location)
		if b == nil {
			return fmt.Errorf("%s: no table at %q", c.path, location)
		}
		v := b.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%s: no key %q at %q", c.path, key, location)
		}
		series, err = decode(v)
		return err
	})
	return
}

// Close closes the database.
func (c *Bolt) Close() error {
	return c.db.Close()
}

// Write creates (or extends) a bolt chain file with series stored at
// location.
func Write(path, location string, series map[string][]float64) error {
	names := splitLocation(location)
	if len(names) == 0 {
		return fmt.Errorf("empty location")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(names[0])
		if err != nil {
			return err
		}
		for _, name := range names[1:] {
			b, err = b.CreateBucketIfNotExists(name)
			if err != nil {
				return err
			}
		}
		for key, s := range series {
			if err := b.Put([]byte(key), encode(s)); err != nil {
				return err
			}
		}
		return nil
	})
}

// encode stores samples as little-endian float64 values.
func encode(series []float64) []byte {
	buf := make([]byte, 8*len(series))
	for i, v := range series {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decode(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("corrupted series: %d bytes", len(buf))
	}
	series := make([]float64, len(buf)/8)
	for i := range series {
		series[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return series, nil
}
