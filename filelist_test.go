package mir

import (
	"path/filepath"
	"testing"
)

func newTestFileList(t *testing.T, blockSize int) *FileList {
	t.Helper()
	dir := t.TempDir()
	fl, err := NewFileList(filepath.Join(dir, "idx"), filepath.Join(dir, "data"), blockSize)
	if err != nil {
		t.Fatalf("NewFileList: %v", err)
	}
	return fl
}

func TestFileListBlockSizeTooSmall(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileList(filepath.Join(dir, "idx"), filepath.Join(dir, "data"), 4)
	if err != ErrBlockSizeTooSmall {
		t.Fatalf("expected ErrBlockSizeTooSmall, got %v", err)
	}
}

func TestFileListGetAbsent(t *testing.T) {
	fl := newTestFileList(t, 16)
	_, ok, err := fl.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected absent")
	}
}

// Scenario 1: round-trip with shrink+grow across 8 keys, block_size=16.
func TestFileListRoundTripShrinkGrow(t *testing.T) {
	fl := newTestFileList(t, 16)

	values := []string{
		"pls", "work", "hello world", "this is a test",
		"of the file map class", "it should work",
		"caffettin, caffettin", "lo bevo, e so contento",
	}

	for i, v := range values {
		if err := fl.Set(i, []byte(v)); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i, v := range values {
		got, ok, err := fl.Get(i)
		if err != nil || !ok {
			t.Fatalf("Get(%d): ok=%v err=%v", i, ok, err)
		}
		if string(got) != v {
			t.Fatalf("Get(%d) = %q, want %q", i, got, v)
		}
	}

	// Overwrite each with a longer value.
	longer := make([]string, len(values))
	for i, v := range values {
		longer[i] = v + " -- extended with quite a bit more text to force growth"
		if err := fl.Set(i, []byte(longer[i])); err != nil {
			t.Fatalf("Set longer(%d): %v", i, err)
		}
	}
	for i, v := range longer {
		got, ok, err := fl.Get(i)
		if err != nil || !ok {
			t.Fatalf("Get longer(%d): ok=%v err=%v", i, ok, err)
		}
		if string(got) != v {
			t.Fatalf("Get longer(%d) = %q, want %q", i, got, v)
		}
	}

	// Overwrite each with a shorter value.
	shorter := []string{"p", "w", "h", "t", "o", "i", "c", "l"}
	for i, v := range shorter {
		if err := fl.Set(i, []byte(v)); err != nil {
			t.Fatalf("Set shorter(%d): %v", i, err)
		}
	}
	for i, v := range shorter {
		got, ok, err := fl.Get(i)
		if err != nil || !ok {
			t.Fatalf("Get shorter(%d): ok=%v err=%v", i, ok, err)
		}
		if string(got) != v {
			t.Fatalf("Get shorter(%d) = %q, want %q", i, got, v)
		}
	}
}

func TestFileListLastWriteWins(t *testing.T) {
	fl := newTestFileList(t, 32)
	for _, v := range []string{"first", "second value", "third"} {
		if err := fl.Set(0, []byte(v)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	got, ok, err := fl.Get(0)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "third" {
		t.Fatalf("Get = %q, want %q", got, "third")
	}
}

func TestFileListAppend(t *testing.T) {
	fl := newTestFileList(t, 16)
	if err := fl.Set(0, []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fl.Append(0, []byte(" world")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, ok, err := fl.Get(0)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "hello world" {
		t.Fatalf("Get = %q, want %q", got, "hello world")
	}
}

func TestFileListAppendToAbsent(t *testing.T) {
	fl := newTestFileList(t, 16)
	if err := fl.Append(3, []byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, ok, err := fl.Get(3)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "abc" {
		t.Fatalf("Get = %q, want %q", got, "abc")
	}
}

func TestFileListGetStream(t *testing.T) {
	fl := newTestFileList(t, 16)
	value := "this is a somewhat long value spanning many blocks of tiny size"
	if err := fl.Set(0, []byte(value)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got []byte
	for chunk, err := range fl.GetStream(0) {
		if err != nil {
			t.Fatalf("GetStream: %v", err)
		}
		got = append(got, chunk...)
	}
	if string(got) != value {
		t.Fatalf("GetStream = %q, want %q", got, value)
	}
}

func TestFileListNextKey(t *testing.T) {
	fl := newTestFileList(t, 16)
	nk, err := fl.NextKey()
	if err != nil || nk != 0 {
		t.Fatalf("NextKey = %d, %v, want 0", nk, err)
	}
	fl.Set(0, []byte("a"))
	fl.Set(1, []byte("b"))
	nk, err = fl.NextKey()
	if err != nil || nk != 2 {
		t.Fatalf("NextKey = %d, %v, want 2", nk, err)
	}
}

func TestFileListNextAvailableKey(t *testing.T) {
	fl := newTestFileList(t, 16)
	fl.Set(0, []byte("a"))
	fl.Set(2, []byte("c"))
	nak, err := fl.NextAvailableKey()
	if err != nil {
		t.Fatalf("NextAvailableKey: %v", err)
	}
	if nak != 1 {
		t.Fatalf("NextAvailableKey = %d, want 1", nak)
	}
}
