package fat32

import (
	"errors"
	"io"
	"io/fs"
	"sort"
)

type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(bytes []byte) (int, error) {
	return g.File.Read(bytes)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFs wraps the afero adapter to be compatible with fs.FS. Paths follow
// the io/fs convention: unrooted, with "." naming the root directory.
type GoFs struct {
	Fs
}

// NewGoFS opens a volume from the given reader as an fs.FS compatible
// filesystem.
func NewGoFS(reader io.ReadSeeker) (*GoFs, error) {
	fsys, err := New(reader)
	if err != nil {
		return nil, err
	}

	return &GoFs{*fsys}, nil
}

// NewGoFSFromDevice opens a volume on dev as an fs.FS compatible filesystem.
func NewGoFSFromDevice(dev BlockDevice) (*GoFs, error) {
	fsys, err := NewFromDevice(dev)
	if err != nil {
		return nil, err
	}

	return &GoFs{*fsys}, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		name = "/"
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, errors.New("invalid File implementation")
	}

	return GoFile{f}, nil
}

// ReadDir implements fs.ReadDirFS so fs.WalkDir avoids a second Open per
// directory.
func (g GoFs) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	p := name
	if p == "." {
		p = "/"
	}
	infos, err := g.Volume().ReadDir(p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = GoDirEntry{info}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
