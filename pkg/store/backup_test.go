package store

import (
	"bytes"
	"fmt"
	"testing"
)

func TestBackupRestore_RoundTrip(t *testing.T) {
	src := openTestStore(t, t.TempDir(), 0)
	defer src.Close()

	for i := 0; i < 25; i++ {
		if err := src.Set(fmt.Sprintf("key%02d", i), fmt.Sprintf("value%d", i)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := src.Remove("key07"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var snapshot bytes.Buffer
	if err := src.Backup(&snapshot); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	dst := openTestStore(t, t.TempDir(), 0)
	defer dst.Close()

	if err := dst.Restore(&snapshot); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if dst.Len() != src.Len() {
		t.Fatalf("restored %d keys, want %d", dst.Len(), src.Len())
	}
	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("key%02d", i)
		if i == 7 {
			mustMiss(t, dst, key)
			continue
		}
		mustGet(t, dst, key, fmt.Sprintf("value%d", i))
	}
}

func TestRestore_OverwritesExistingKeys(t *testing.T) {
	src := openTestStore(t, t.TempDir(), 0)
	defer src.Close()
	if err := src.Set("k", "new"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var snapshot bytes.Buffer
	if err := src.Backup(&snapshot); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	dst := openTestStore(t, t.TempDir(), 0)
	defer dst.Close()
	if err := dst.Set("k", "old"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := dst.Set("untouched", "still here"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := dst.Restore(&snapshot); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	mustGet(t, dst, "k", "new")
	mustGet(t, dst, "untouched", "still here")
}
