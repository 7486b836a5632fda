package nar_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/nar-community/go-nar/pkg/nar"
	"github.com/nar-community/go-nar/pkg/wire"
)

func TestReaderRegular(t *testing.T) {
	payload := []byte("lorem ipsum dolor sic amet\n")
	data := genRegularNar(t, payload)

	r := openStream(t, data)

	kind, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if kind != nar.KindRegular {
		t.Errorf("kind = %v, want KindRegular", kind)
	}

	if r.Size() != uint64(len(payload)) {
		t.Errorf("Size = %d, want %d", r.Size(), len(payload))
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("content = %q, want %q", got, payload)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after root: got %v, want io.EOF", err)
	}
}

func TestReaderExecutable(t *testing.T) {
	payload := []byte("#!/bin/sh\nset -euo pipefail\nexit 0\n")
	data := genExecutableNar(t, payload)

	r := openStream(t, data)

	kind, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if kind != nar.KindExecutable {
		t.Errorf("kind = %v, want KindExecutable", kind)
	}
}

func TestReaderSymlink(t *testing.T) {
	data := genSymlinkNar(t, "./foo")

	r := openStream(t, data)

	kind, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if kind != nar.KindSymlink {
		t.Errorf("kind = %v, want KindSymlink", kind)
	}

	if r.Target() != "./foo" {
		t.Errorf("Target = %q, want %q", r.Target(), "./foo")
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after root: got %v, want io.EOF", err)
	}
}

func TestReaderNestedDirectory(t *testing.T) {
	var data bytes.Buffer

	for _, s := range []string{"nix-archive-1", "(", "type", "directory", "entry", "(", "name", "subdir", "node", "(", "type", "directory", "entry", "(", "name", "file", "node", "(", "type", "regular", "contents"} {
		mustNil(t, wire.WriteString(&data, s))
	}

	mustNil(t, wire.WriteBytes(&data, []byte("hello world")))

	for i := 0; i < 5; i++ {
		mustNil(t, wire.WriteString(&data, ")"))
	}

	r := openStream(t, data.Bytes())

	kind, err := r.Next()
	if err != nil || kind != nar.KindDirectory {
		t.Fatalf("root Next: kind=%v err=%v", kind, err)
	}

	if r.Path() != "" {
		t.Errorf("root Path = %q, want empty", r.Path())
	}

	kind, err = r.Next()
	if err != nil || kind != nar.KindDirectory {
		t.Fatalf("subdir Next: kind=%v err=%v", kind, err)
	}

	if r.Path() != "subdir" {
		t.Errorf("subdir Path = %q, want %q", r.Path(), "subdir")
	}

	kind, err = r.Next()
	if err != nil || kind != nar.KindRegular {
		t.Fatalf("file Next: kind=%v err=%v", kind, err)
	}

	if r.Path() != "subdir/file" {
		t.Errorf("file Path = %q, want %q", r.Path(), "subdir/file")
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if string(got) != "hello world" {
		t.Errorf("content = %q", got)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after subdir's last entry: got %v, want io.EOF", err)
	}
}

func TestReaderBadPadding(t *testing.T) {
	// S6: tamper a padding byte of S1 and expect a padding error.
	data := genRegularNar(t, []byte("lorem ipsum dolor sic amet\n"))
	data[len(data)-1] = 0x01

	r := openStream(t, data)

	kind, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if kind != nar.KindRegular {
		t.Fatalf("kind = %v, want KindRegular", kind)
	}

	if _, err := io.ReadAll(r); err == nil {
		t.Error("ReadAll over tampered padding: expected error, got nil")
	}
}

func TestReaderInvalidMagic(t *testing.T) {
	var data bytes.Buffer
	mustNil(t, wire.WriteString(&data, "not-a-nar-archive"))

	if _, err := nar.Open(&data, nar.DefaultParameters()); err != nar.ErrInvalidMagic {
		t.Errorf("Open with bad magic: got %v, want ErrInvalidMagic", err)
	}
}

// openStream opens a Deserializer over data and claims its low-level
// Reader, for tests that drive Next/Read directly instead of Entries.
func openStream(t *testing.T, data []byte) *nar.Reader {
	t.Helper()

	d, err := nar.Open(bytes.NewReader(data), nar.DefaultParameters())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	r, err := d.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}

	return r
}
