package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kvlog/pkg/config"
	"kvlog/pkg/kverrors"
)

func TestListGenerations_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"3.log", "11.log", "notes.txt", "x7.log", "7x.log", ".log", "2.log.bak"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "5.log"), 0750); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	gens, err := listGenerations(dir)
	if err != nil {
		t.Fatalf("listGenerations failed: %v", err)
	}
	want := []uint64{3, 11}
	if len(gens) != len(want) || gens[0] != want[0] || gens[1] != want[1] {
		t.Fatalf("listGenerations = %v, want %v", gens, want)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "occupied")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Open(file, config.StorageConfig{})
	if !errors.Is(err, kverrors.ErrInvalidPath) {
		t.Fatalf("Open on a file = %v, want ErrInvalidPath", err)
	}
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s := openTestStore(t, dir, 0)
	defer s.Close()

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mustGet(t, s, "k", "v")
}

func TestOpen_SkipsTornTrailingRecord(t *testing.T) {
	dir := t.TempDir()

	content := `{"op":"set","key":"a","value":"1"}` + "\n" +
		`{"op":"set","key":"b","value":"2"}` + "\n" +
		`{"op":"set","key":"c","val` // torn append, no newline
	if err := os.WriteFile(filepath.Join(dir, "0.log"), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := openTestStore(t, dir, 0)
	defer s.Close()

	mustGet(t, s, "a", "1")
	mustGet(t, s, "b", "2")
	mustMiss(t, s, "c")
}

func TestOpen_MalformedRecordFailsReplay(t *testing.T) {
	dir := t.TempDir()

	content := `{"op":"set","key":"a","value":"1"}` + "\n" +
		"not a record\n"
	if err := os.WriteFile(filepath.Join(dir, "0.log"), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Open(dir, config.StorageConfig{})
	if !errors.Is(err, kverrors.ErrBadRecord) {
		t.Fatalf("Open over malformed log = %v, want ErrBadRecord", err)
	}
}

func TestOpen_ActiveGenerationFollowsNewest(t *testing.T) {
	dir := t.TempDir()

	record := `{"op":"set","key":"old","value":"x"}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "4.log"), []byte(record), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := openTestStore(t, dir, 0)
	defer s.Close()

	if s.writer.gen != 5 {
		t.Fatalf("active generation = %d, want 5", s.writer.gen)
	}
	mustGet(t, s, "old", "x")
}
