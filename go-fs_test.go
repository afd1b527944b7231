package fat32

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestGoFs(t *testing.T) {
	vol, dev := newTestVolume(t)

	if _, err := vol.Create("/alpha.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := vol.WriteAt("/alpha.txt", []byte("first file"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := vol.Mkdir("/docs"); err != nil {
		t.Fatal(err)
	}
	if _, err := vol.Create("/docs/readme.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := vol.WriteAt("/docs/readme.md", []byte("# hello\n"), 0); err != nil {
		t.Fatal(err)
	}

	gofs, err := NewGoFSFromDevice(dev)
	if err != nil {
		t.Fatalf("NewGoFSFromDevice() error = %v", err)
	}

	if err := fstest.TestFS(gofs, "alpha.txt", "docs", "docs/readme.md"); err != nil {
		t.Errorf("TestFS() = %v", err)
	}
}

func TestGoFs_Open(t *testing.T) {
	vol, dev := newTestVolume(t)
	if _, err := vol.Create("/data.bin"); err != nil {
		t.Fatal(err)
	}
	if _, err := vol.WriteAt("/data.bin", []byte("payload"), 0); err != nil {
		t.Fatal(err)
	}

	gofs, err := NewGoFSFromDevice(dev)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("existing file", func(t *testing.T) {
		f, err := gofs.Open("data.bin")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer f.Close()
		got, err := io.ReadAll(f)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "payload" {
			t.Errorf("content = %q, want payload", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := gofs.Open("missing.bin")
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Open(missing) error = %v, want fs.ErrNotExist", err)
		}
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			t.Errorf("Open(missing) error is no *fs.PathError: %T", err)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		_, err := gofs.Open("/rooted")
		if !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("Open(rooted path) error = %v, want fs.ErrInvalid", err)
		}
	})
}

func TestGoFs_WalkDir(t *testing.T) {
	vol, dev := newTestVolume(t)
	for _, p := range []string{"/a", "/a/b"} {
		if _, err := vol.Mkdir(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := vol.Create("/a/b/deep.txt"); err != nil {
		t.Fatal(err)
	}

	gofs, err := NewGoFSFromDevice(dev)
	if err != nil {
		t.Fatal(err)
	}

	var visited []string
	err = fs.WalkDir(gofs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir() error = %v", err)
	}

	want := []string{".", "a", "a/b", "a/b/deep.txt"}
	if len(visited) != len(want) {
		t.Fatalf("WalkDir() visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%v] = %q, want %q", i, visited[i], want[i])
		}
	}
}
