package engine

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilupskalvis/seqarc/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	-- Archive-wide settings (magic, version, block size, codec)
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Samples in archive order
	CREATE TABLE IF NOT EXISTS samples (
		ord INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	-- Contigs in sample order
	CREATE TABLE IF NOT EXISTS contigs (
		sample_ord INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		length INTEGER NOT NULL,
		blocks INTEGER NOT NULL,
		PRIMARY KEY (sample_ord, ord),
		UNIQUE (sample_ord, name),
		FOREIGN KEY (sample_ord) REFERENCES samples(ord)
	);

	-- Compressed sequence blocks (crc32 || zstd frame)
	CREATE TABLE IF NOT EXISTS blocks (
		sample_ord INTEGER NOT NULL,
		contig_ord INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (sample_ord, contig_ord, idx)
	);
`

// sqliteContainer stores an archive in a SQLite database file.
type sqliteContainer struct {
	db *sql.DB
}

// sqliteDSN turns path into a file: URI. The path is escaped so that '#', '%'
// and '?' stay part of the file name instead of starting a fragment or query.
func sqliteDSN(path string, query url.Values) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: query.Encode()}
	return u.String(), nil
}

func openSQLiteSource(path string) (*sqliteContainer, error) {
	dsn, err := sqliteDSN(path, url.Values{"mode": {"ro"}})
	if err != nil {
		return nil, fmt.Errorf("open sqlite container: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite container: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &sqliteContainer{db: db}, nil
}

func createSQLiteSink(path string) (*sqliteContainer, error) {
	dsn, err := sqliteDSN(path, url.Values{"_pragma": {"synchronous(OFF)"}})
	if err != nil {
		return nil, fmt.Errorf("create sqlite container: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("create sqlite container: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &sqliteContainer{db: db}, nil
}

// Close closes the database connection
func (c *sqliteContainer) Close() error {
	return c.db.Close()
}

func (c *sqliteContainer) readManifest() (*models.Manifest, error) {
	meta := make(map[string]string)
	rows, err := c.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("%w: read meta: %v", ErrFormat, err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan meta: %v", ErrCorrupt, err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read meta: %v", ErrCorrupt, err)
	}
	if meta[string(keyMagic)] != archiveMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}

	m := &models.Manifest{Codec: meta[string(keyCodec)]}
	if m.Version, err = strconv.Atoi(meta[string(keyVersion)]); err != nil {
		return nil, fmt.Errorf("%w: parse version: %v", ErrFormat, err)
	}
	if m.BlockSize, err = strconv.Atoi(meta[string(keyBlockSize)]); err != nil {
		return nil, fmt.Errorf("%w: parse block size: %v", ErrFormat, err)
	}

	if err := c.readSamples(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *sqliteContainer) readSamples(m *models.Manifest) error {
	rows, err := c.db.Query("SELECT ord, name FROM samples ORDER BY ord")
	if err != nil {
		return fmt.Errorf("%w: read samples: %v", ErrFormat, err)
	}
	defer rows.Close()

	byOrd := make(map[int]*models.Sample)
	for rows.Next() {
		var ord int
		s := &models.Sample{}
		if err := rows.Scan(&ord, &s.Name); err != nil {
			return fmt.Errorf("%w: scan sample: %v", ErrCorrupt, err)
		}
		byOrd[ord] = s
		m.Samples = append(m.Samples, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: read samples: %v", ErrCorrupt, err)
	}
	rows.Close()
	for i := range m.Samples {
		if byOrd[i] == nil {
			return fmt.Errorf("%w: sample ordinals are not contiguous", ErrCorrupt)
		}
	}

	crows, err := c.db.Query("SELECT sample_ord, name, length, blocks FROM contigs ORDER BY sample_ord, ord")
	if err != nil {
		return fmt.Errorf("%w: read contigs: %v", ErrFormat, err)
	}
	defer crows.Close()

	for crows.Next() {
		var sampleOrd int
		ct := &models.Contig{}
		if err := crows.Scan(&sampleOrd, &ct.Name, &ct.Length, &ct.Blocks); err != nil {
			return fmt.Errorf("%w: scan contig: %v", ErrCorrupt, err)
		}
		s, ok := byOrd[sampleOrd]
		if !ok {
			return fmt.Errorf("%w: contig %q references unknown sample %d", ErrCorrupt, ct.Name, sampleOrd)
		}
		s.Contigs = append(s.Contigs, ct)
	}
	if err := crows.Err(); err != nil {
		return fmt.Errorf("%w: read contigs: %v", ErrCorrupt, err)
	}
	return nil
}

func (c *sqliteContainer) readBlock(k models.BlockKey) ([]byte, error) {
	var record []byte
	err := c.db.QueryRow(
		"SELECT data FROM blocks WHERE sample_ord = ? AND contig_ord = ? AND idx = ?",
		k.Sample, k.Contig, k.Block,
	).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: missing block %s", ErrCorrupt, k)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read block %s: %v", ErrCorrupt, k, err)
	}
	return record, nil
}

func (c *sqliteContainer) writeContig(sampleOrd, contigOrd int, records [][]byte) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO blocks (sample_ord, contig_ord, idx, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(sampleOrd, contigOrd, i, rec); err != nil {
			return fmt.Errorf("store block %d/%d/%d: %w", sampleOrd, contigOrd, i, err)
		}
	}
	return tx.Commit()
}

func (c *sqliteContainer) writeManifest(m *models.Manifest) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta := [][2]string{
		{string(keyMagic), archiveMagic},
		{string(keyVersion), strconv.Itoa(m.Version)},
		{string(keyBlockSize), strconv.Itoa(m.BlockSize)},
		{string(keyCodec), m.Codec},
	}
	for _, kv := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("store meta %s: %w", kv[0], err)
		}
	}

	for i, s := range m.Samples {
		if _, err := tx.Exec("INSERT INTO samples (ord, name) VALUES (?, ?)", i, s.Name); err != nil {
			return fmt.Errorf("store sample %s: %w", s.Name, err)
		}
		for j, ct := range s.Contigs {
			if _, err := tx.Exec(
				"INSERT INTO contigs (sample_ord, ord, name, length, blocks) VALUES (?, ?, ?, ?, ?)",
				i, j, ct.Name, ct.Length, ct.Blocks,
			); err != nil {
				return fmt.Errorf("store contig %s/%s: %w", s.Name, ct.Name, err)
			}
		}
	}
	return tx.Commit()
}
