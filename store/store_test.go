package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/bekzod/glimmer-vm/template"
)

func sampleTemplate() *template.Template {
	b := template.NewBuilder()
	b.OpenElement("p").FlushElement()
	b.Append(b.Self("name"))
	b.CloseElement()
	return b.Template()
}

func TestPutGet(t *testing.T) {
	s := NewStore()
	tmpl := sampleTemplate()

	d, err := s.Put(tmpl)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if d == (Digest{}) {
		t.Fatal("Put returned the zero digest")
	}
	if got := s.Get(d); got != tmpl {
		t.Error("Get did not return the indexed template")
	}
	if !s.Has(d) {
		t.Error("Has(d) = false after Put")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestHashStability(t *testing.T) {
	// The same program hashes identically across independent builds and
	// encode cycles.
	d1, _, err := HashTemplate(sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}
	d2, _, err := HashTemplate(sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("identical templates hashed differently: %s vs %s", d1, d2)
	}

	// Decoding and re-hashing preserves the address.
	_, wire, err := HashTemplate(sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := template.DecodeTemplate(wire)
	if err != nil {
		t.Fatal(err)
	}
	d3, _, err := HashTemplate(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if d3 != d1 {
		t.Errorf("decode cycle changed digest: %s vs %s", d3, d1)
	}
}

func TestParseDigest(t *testing.T) {
	d1, _, err := HashTemplate(sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}
	d2, err := ParseDigest(d1.String())
	if err != nil {
		t.Fatalf("ParseDigest failed: %v", err)
	}
	if d1 != d2 {
		t.Error("digest did not survive a string round trip")
	}

	if _, err := ParseDigest("zz"); !errors.Is(err, ErrBadDigest) {
		t.Errorf("ParseDigest(garbage) = %v, want ErrBadDigest", err)
	}
}

func TestPersistentStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.db")

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	d, err := p.Put(sampleTemplate())
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen: Open loads everything back into memory.
	p, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer p.Close()

	if !p.Has(d) {
		t.Fatal("digest missing after reopen")
	}
	loaded, err := p.Load(d)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Statements) != len(sampleTemplate().Statements) {
		t.Errorf("loaded template has %d statements, want %d",
			len(loaded.Statements), len(sampleTemplate().Statements))
	}
}

func TestPersistentStoreNotFound(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "templates.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	_, err = p.Load(Digest{1, 2, 3})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(absent) = %v, want ErrTemplateNotFound", err)
	}
}

func TestPersistentStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.db")
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	d, err := p.Put(sampleTemplate())
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := p.Delete(d); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if p.Has(d) {
		t.Error("digest still present after Delete")
	}
	if _, err := p.Load(d); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(deleted) = %v, want ErrTemplateNotFound", err)
	}
}
