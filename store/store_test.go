package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/groovypp/image"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "classes.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func class(name string, fp byte) image.Class {
	return image.Class{
		Name:        name,
		Super:       "java/lang/Object",
		Fingerprint: []byte{fp, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		Methods: []image.Method{{
			Name: "run", Desc: "()V",
			Code: []image.Insn{{Kind: 0, Op: 177}},
		}},
	}
}

func TestPutImageAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	img := &image.Image{Version: image.Version, Module: "demo", Session: "s1",
		Classes: []image.Class{class("demo.A", 1), class("demo.B", 2)}}

	stats, err := s.PutImage(ctx, img)
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if stats.Written != 2 || stats.Unchanged != 0 {
		t.Errorf("stats = %+v, want 2 written", stats)
	}

	got, err := s.Get(ctx, "demo.B")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "demo.B" || len(got.Methods) != 1 || got.Methods[0].Code[0].Op != 177 {
		t.Errorf("Get = %+v", got)
	}

	fp, err := s.Fingerprint(ctx, "demo.A")
	if err != nil {
		t.Fatal(err)
	}
	if fp != "010102030405060708090a0b0c0d0e0f" {
		t.Errorf("fingerprint = %s", fp)
	}
}

func TestPutImageSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	first := time.UnixMilli(1_000_000)
	s.now = func() time.Time { return first }

	img := &image.Image{Module: "demo", Session: "s1", Classes: []image.Class{class("demo.A", 1), class("demo.B", 2)}}
	if _, err := s.PutImage(ctx, img); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return first.Add(time.Hour) }
	img = &image.Image{Module: "demo", Session: "s2", Classes: []image.Class{class("demo.A", 1), class("demo.B", 9)}}
	stats, err := s.PutImage(ctx, img)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Written != 1 || stats.Unchanged != 1 {
		t.Errorf("stats = %+v, want 1 written 1 unchanged", stats)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	a, b := entries[0], entries[1]
	if a.Name != "demo.A" || a.Session != "s1" || !a.Updated.Equal(first) {
		t.Errorf("unchanged class was rewritten: %+v", a)
	}
	if b.Name != "demo.B" || b.Session != "s2" || b.Fingerprint[:2] != "09" {
		t.Errorf("changed class = %+v", b)
	}
	if b.Size == 0 {
		t.Error("payload size not reported")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "demo.Nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := s.Fingerprint(context.Background(), "demo.Nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fingerprint error = %v, want ErrNotFound", err)
	}
}

func TestChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	c := class("demo.A", 1)
	if _, err := s.Put(ctx, "demo", "s1", &c); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec("UPDATE classes SET checksum = checksum + 1 WHERE name = ?", "demo.A"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "demo.A"); !errors.Is(err, ErrChecksum) {
		t.Errorf("Get error = %v, want ErrChecksum", err)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	img := &image.Image{Module: "demo", Session: "s1",
		Classes: []image.Class{class("demo.A", 1), class("demo.B", 2), class("demo.A$1", 3)}}
	if _, err := s.PutImage(ctx, img); err != nil {
		t.Fatal(err)
	}
	other := class("lib.C", 4)
	if _, err := s.Put(ctx, "lib", "s1", &other); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune(ctx, "demo", []string{"demo.A"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if len(names) != 2 || names[0] != "demo.A" || names[1] != "lib.C" {
		t.Errorf("remaining = %v", names)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	c := class("demo.A", 1)
	if _, err := s.Put(context.Background(), "demo", "s1", &c); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "demo.A"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	c := class("demo.A", 1)
	if changed, err := s.Put(context.Background(), "demo", "s1", &c); err != nil || !changed {
		t.Fatalf("Put = %v, %v", changed, err)
	}
	if changed, _ := s.Put(context.Background(), "demo", "s1", &c); changed {
		t.Error("identical fingerprint rewritten")
	}
}
