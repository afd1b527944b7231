package fat32

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// newTestFs formats a scratch volume and opens it through the afero adapter.
func newTestFs(t *testing.T) *Fs {
	t.Helper()
	dev := NewMemDevice(512, 20480)
	if err := Format(dev, FormatConfig{Label: "AFEROTEST"}); err != nil {
		t.Fatal(err)
	}
	fsys, err := NewFromDevice(dev)
	if err != nil {
		t.Fatal(err)
	}
	return fsys
}

func TestFs_WriteAndReadBack(t *testing.T) {
	fsys := newTestFs(t)

	payload := []byte("stored through afero")
	if err := afero.WriteFile(fsys, "/afero.txt", payload, 0o666); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := afero.ReadFile(fsys, "/afero.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadFile() = %q, want %q", got, payload)
	}
}

func TestFs_OpenFile(t *testing.T) {
	fsys := newTestFs(t)

	t.Run("create", func(t *testing.T) {
		f, err := fsys.OpenFile("/new.txt", os.O_RDWR|os.O_CREATE, 0o666)
		if err != nil {
			t.Fatalf("OpenFile(O_CREATE) error = %v", err)
		}
		defer f.Close()
		if _, err := f.WriteString("content"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("exclusive create on existing file", func(t *testing.T) {
		_, err := fsys.OpenFile("/new.txt", os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("OpenFile(O_EXCL) error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("missing without create", func(t *testing.T) {
		_, err := fsys.OpenFile("/absent.txt", os.O_RDONLY, 0)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("OpenFile(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("truncate", func(t *testing.T) {
		f, err := fsys.OpenFile("/new.txt", os.O_RDWR|os.O_TRUNC, 0o666)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		stat, _ := f.Stat()
		if stat.Size() != 0 {
			t.Errorf("size after O_TRUNC = %v, want 0", stat.Size())
		}
	})

	t.Run("append", func(t *testing.T) {
		if err := afero.WriteFile(fsys, "/log.txt", []byte("one"), 0o666); err != nil {
			t.Fatal(err)
		}
		f, err := fsys.OpenFile("/log.txt", os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.WriteString("+two"); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
		got, _ := afero.ReadFile(fsys, "/log.txt")
		if string(got) != "one+two" {
			t.Errorf("content = %q, want one+two", got)
		}
	})
}

func TestFs_MkdirAll(t *testing.T) {
	fsys := newTestFs(t)

	if err := fsys.MkdirAll("/deep/nested/dirs", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	stat, err := fsys.Stat("/deep/nested/dirs")
	if err != nil {
		t.Fatal(err)
	}
	if !stat.IsDir() {
		t.Error("MkdirAll() result is no directory")
	}

	// Existing prefixes are fine, files in the way are not.
	if err := fsys.MkdirAll("/deep/nested", 0o755); err != nil {
		t.Errorf("MkdirAll(existing) error = %v", err)
	}
	if err := afero.WriteFile(fsys, "/deep/file", nil, 0o666); err != nil {
		t.Fatal(err)
	}
	if err := fsys.MkdirAll("/deep/file/sub", 0o755); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("MkdirAll(through file) error = %v, want ErrNotADirectory", err)
	}
}

func TestFs_RemoveAll(t *testing.T) {
	fsys := newTestFs(t)
	free := fsys.Volume().FreeClusters()

	if err := fsys.MkdirAll("/tree/sub", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/tree/a.txt", bytes.Repeat([]byte{1}, 2000), 0o666); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/tree/sub/b.txt", []byte("x"), 0o666); err != nil {
		t.Fatal(err)
	}

	if err := fsys.RemoveAll("/tree"); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if _, err := fsys.Stat("/tree"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat() after RemoveAll error = %v, want ErrNotFound", err)
	}
	if got := fsys.Volume().FreeClusters(); got != free {
		t.Errorf("FreeClusters() = %v, want %v after RemoveAll", got, free)
	}

	// Removing something absent is not an error.
	if err := fsys.RemoveAll("/tree"); err != nil {
		t.Errorf("RemoveAll(absent) error = %v", err)
	}
}

func TestFs_Rename(t *testing.T) {
	fsys := newTestFs(t)
	if err := afero.WriteFile(fsys, "/old.txt", []byte("data"), 0o666); err != nil {
		t.Fatal(err)
	}

	if err := fsys.Rename("/old.txt", "/new.txt"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	got, err := afero.ReadFile(fsys, "/new.txt")
	if err != nil || string(got) != "data" {
		t.Errorf("ReadFile(renamed) = (%q, %v)", got, err)
	}
}

func TestFs_Chtimes(t *testing.T) {
	fsys := newTestFs(t)
	if err := afero.WriteFile(fsys, "/stamped.txt", []byte("x"), 0o666); err != nil {
		t.Fatal(err)
	}

	mtime := time.Date(2023, time.June, 10, 12, 30, 14, 0, time.UTC)
	if err := fsys.Chtimes("/stamped.txt", mtime, mtime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	stat, err := fsys.Stat("/stamped.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !stat.ModTime().Equal(mtime) {
		t.Errorf("ModTime() = %v, want %v", stat.ModTime(), mtime)
	}
}

func TestFs_Chmod(t *testing.T) {
	fsys := newTestFs(t)
	if err := afero.WriteFile(fsys, "/locked.txt", []byte("x"), 0o666); err != nil {
		t.Fatal(err)
	}

	if err := fsys.Chmod("/locked.txt", 0o444); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	stat, _ := fsys.Stat("/locked.txt")
	if stat.Mode()&0o200 != 0 {
		t.Errorf("Mode() = %v, want the write bit cleared", stat.Mode())
	}

	if err := fsys.Chmod("/locked.txt", 0o644); err != nil {
		t.Fatal(err)
	}
	stat, _ = fsys.Stat("/locked.txt")
	if stat.Mode()&0o200 == 0 {
		t.Errorf("Mode() = %v, want the write bit set again", stat.Mode())
	}
}

func TestFs_ReadOnlyStream(t *testing.T) {
	dev := NewMemDevice(512, 20480)
	if err := Format(dev, FormatConfig{}); err != nil {
		t.Fatal(err)
	}
	fsys, err := New(bytes.NewReader(dev.Bytes()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := fsys.OpenFile("/x.txt", os.O_RDWR|os.O_CREATE, 0o666); !errors.Is(err, ErrReadOnly) {
		t.Errorf("OpenFile(write on read-only stream) error = %v, want ErrReadOnly", err)
	}
}

func TestFs_Walk(t *testing.T) {
	fsys := newTestFs(t)
	if err := fsys.MkdirAll("/w/x", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/w/x/leaf.txt", []byte("leaf"), 0o666); err != nil {
		t.Fatal(err)
	}

	var found bool
	err := afero.Walk(fsys, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == "leaf.txt" {
			found = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if !found {
		t.Error("Walk() never visited leaf.txt")
	}
}
