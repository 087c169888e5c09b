package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/kilupskalvis/seqarc/internal/models"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Bucket names used by the bbolt container.
var (
	bucketMeta    = []byte("meta")
	bucketSamples = []byte("samples")
	bucketBlocks  = []byte("blocks")
)

// Meta key names.
var (
	keyMagic     = []byte("magic")
	keyVersion   = []byte("version")
	keyBlockSize = []byte("block_size")
	keyCodec     = []byte("codec")
)

// boltContainer stores an archive in a single bbolt file.
type boltContainer struct {
	db *bolt.DB
}

// openBoltSource opens an existing archive read-only. Several readers may hold
// the same file at once; bbolt takes a shared lock in read-only mode.
func openBoltSource(path string) (*boltContainer, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var db *bolt.DB
	err = guardMapped(func() error {
		var err error
		db, err = bolt.Open(path, 0400, &bolt.Options{ReadOnly: true, Timeout: 1 * time.Second})
		return err
	})
	if err != nil {
		if errors.Is(err, berrors.ErrInvalid) || errors.Is(err, berrors.ErrVersionMismatch) || errors.Is(err, berrors.ErrChecksum) {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return nil, fmt.Errorf("open bbolt container: %w", err)
	}

	// Pages past the end of a truncated file fault when touched through the mapping.
	c := &boltContainer{db: db}
	var want int64
	if err := c.view(func(tx *bolt.Tx) error {
		want = tx.Size()
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	if want > fi.Size() {
		db.Close()
		return nil, fmt.Errorf("%w: %s is truncated (%d of %d bytes)", ErrFormat, path, fi.Size(), want)
	}
	return c, nil
}

// guardMapped runs fn with memory faults turned into panics and reports any
// panic raised while walking the mapped file as ErrCorrupt.
func guardMapped(fn func() error) (err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()
	return fn()
}

// view is db.View under guardMapped. bbolt rolls the transaction back while
// the panic unwinds, so the read lock is released before the recover.
func (c *boltContainer) view(fn func(tx *bolt.Tx) error) error {
	return guardMapped(func() error {
		return c.db.View(fn)
	})
}

func createBoltSink(path string) (*boltContainer, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create bbolt container: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketSamples, bucketBlocks} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &boltContainer{db: db}, nil
}

// Close closes the database.
func (c *boltContainer) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *boltContainer) readManifest() (*models.Manifest, error) {
	m := &models.Manifest{}
	err := c.view(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		samples := tx.Bucket(bucketSamples)
		if meta == nil || samples == nil || tx.Bucket(bucketBlocks) == nil {
			return fmt.Errorf("%w: missing archive buckets", ErrFormat)
		}
		if string(meta.Get(keyMagic)) != archiveMagic {
			return fmt.Errorf("%w: bad magic", ErrFormat)
		}

		var err error
		if m.Version, err = strconv.Atoi(string(meta.Get(keyVersion))); err != nil {
			return fmt.Errorf("%w: parse version: %v", ErrFormat, err)
		}
		if m.BlockSize, err = strconv.Atoi(string(meta.Get(keyBlockSize))); err != nil {
			return fmt.Errorf("%w: parse block size: %v", ErrFormat, err)
		}
		m.Codec = string(meta.Get(keyCodec))

		// Keys are zero-padded ordinals, so cursor order is archive order.
		return samples.ForEach(func(k, v []byte) error {
			var s models.Sample
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("%w: decode sample %s: %v", ErrCorrupt, k, err)
			}
			m.Samples = append(m.Samples, &s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *boltContainer) readBlock(k models.BlockKey) ([]byte, error) {
	var record []byte
	err := c.view(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(bucketBlocks)
		if blocks == nil {
			return fmt.Errorf("%w: missing blocks bucket", ErrCorrupt)
		}
		v := blocks.Get(k.Bytes())
		if v == nil {
			return fmt.Errorf("%w: missing block %s", ErrCorrupt, k)
		}
		// bbolt values are only valid for the life of the transaction.
		record = append([]byte(nil), v...)
		return nil
	})
	return record, err
}

func (c *boltContainer) writeContig(sampleOrd, contigOrd int, records [][]byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		for i, rec := range records {
			key := models.BlockKey{Sample: sampleOrd, Contig: contigOrd, Block: i}
			if err := b.Put(key.Bytes(), rec); err != nil {
				return fmt.Errorf("store block %s: %w", key, err)
			}
		}
		return nil
	})
}

func (c *boltContainer) writeManifest(m *models.Manifest) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		pairs := map[string]string{
			string(keyMagic):     archiveMagic,
			string(keyVersion):   strconv.Itoa(m.Version),
			string(keyBlockSize): strconv.Itoa(m.BlockSize),
			string(keyCodec):     m.Codec,
		}
		for k, v := range pairs {
			if err := meta.Put([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("store meta %s: %w", k, err)
			}
		}

		samples := tx.Bucket(bucketSamples)
		for i, s := range m.Samples {
			data, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal sample %s: %w", s.Name, err)
			}
			if err := samples.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
				return fmt.Errorf("store sample %s: %w", s.Name, err)
			}
		}
		return nil
	})
}
