package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/bekzod/glimmer-vm/template"
)

// ErrTemplateNotFound indicates the requested digest is in neither the
// cache nor the database.
var ErrTemplateNotFound = errors.New("template not found")

// ErrBadDigest indicates a malformed digest string.
var ErrBadDigest = errors.New("malformed digest")

// PersistentStore is a Store backed by a SQLite cache file. Puts write
// through; loads populate the in-memory index.
type PersistentStore struct {
	*Store
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a template cache at path and loads its
// contents into memory.
func Open(path string) (*PersistentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS templates (
		digest TEXT PRIMARY KEY,
		wire   BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	p := &PersistentStore{Store: NewStore(), db: db}
	if err := p.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the cache file.
func (p *PersistentStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Put indexes a template and writes its wire bytes through to the cache.
func (p *PersistentStore) Put(t *template.Template) (Digest, error) {
	d, wire, err := HashTemplate(t)
	if err != nil {
		return Digest{}, err
	}
	p.Store.mu.Lock()
	p.Store.templates[d] = t
	p.Store.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.db.Exec(
		"INSERT OR REPLACE INTO templates (digest, wire) VALUES (?, ?)",
		d.String(), wire,
	); err != nil {
		return Digest{}, fmt.Errorf("store: saving template: %w", err)
	}
	return d, nil
}

// Load returns the template for the digest, reading from the database if
// it is not already in memory.
func (p *PersistentStore) Load(d Digest) (*template.Template, error) {
	if t := p.Store.Get(d); t != nil {
		return t, nil
	}

	var wire []byte
	err := p.db.QueryRow("SELECT wire FROM templates WHERE digest = ?", d.String()).Scan(&wire)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("store: querying template: %w", err)
	}

	t, err := template.DecodeTemplate(wire)
	if err != nil {
		return nil, fmt.Errorf("store: decoding template %s: %w", d, err)
	}
	p.Store.mu.Lock()
	p.Store.templates[d] = t
	p.Store.mu.Unlock()
	return t, nil
}

// Delete removes a template from the cache and the in-memory index.
func (p *PersistentStore) Delete(d Digest) error {
	p.mu.Lock()
	if _, err := p.db.Exec("DELETE FROM templates WHERE digest = ?", d.String()); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("store: deleting template: %w", err)
	}
	p.mu.Unlock()

	p.Store.mu.Lock()
	delete(p.Store.templates, d)
	p.Store.mu.Unlock()
	return nil
}

// loadAll decodes every cached template into memory. Rows that fail to
// decode are skipped with a note on stderr; the cache stays usable.
func (p *PersistentStore) loadAll() error {
	rows, err := p.db.Query("SELECT digest, wire FROM templates")
	if err != nil {
		return fmt.Errorf("store: querying cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var digest string
		var wire []byte
		if err := rows.Scan(&digest, &wire); err != nil {
			return fmt.Errorf("store: scanning row: %w", err)
		}
		d, err := ParseDigest(digest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: skipping row with bad digest %q\n", digest)
			continue
		}
		t, err := template.DecodeTemplate(wire)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: skipping undecodable template %s: %v\n", digest, err)
			continue
		}
		p.Store.templates[d] = t
	}
	return rows.Err()
}
