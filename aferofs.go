package fat32

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/checkpoint"
	"github.com/spf13/afero"
)

// Fs adapts a mounted volume to afero.Fs so it can be combined with the
// rest of the afero ecosystem.
type Fs struct {
	vol *FS
}

var _ afero.Fs = (*Fs)(nil)

// New mounts the volume behind the given reader with 512-byte sectors.
// Writes are accepted when the reader also implements io.Writer.
func New(rs io.ReadSeeker) (*Fs, error) {
	dev, err := NewSeekerDevice(rs, 512)
	if err != nil {
		return nil, err
	}
	cfg := Config{ReadOnly: !dev.Writable()}
	return NewFromDeviceConfig(dev, cfg)
}

// NewFromDevice mounts the volume on dev.
func NewFromDevice(dev BlockDevice) (*Fs, error) {
	return NewFromDeviceConfig(dev, Config{})
}

// NewFromDeviceConfig is NewFromDevice with mount options.
func NewFromDeviceConfig(dev BlockDevice, cfg Config) (*Fs, error) {
	vol, err := MountConfig(dev, cfg)
	if err != nil {
		return nil, err
	}
	return &Fs{vol: vol}, nil
}

// Volume exposes the underlying engine for callers that need operations
// afero does not model, like Label or FreeClusters.
func (f *Fs) Volume() *FS { return f.vol }

func (f *Fs) Name() string { return "fat32" }

func (f *Fs) open(name string, writable bool) (*File, error) {
	stat, err := f.vol.Getattr(name)
	if err != nil {
		return nil, err
	}
	return &File{
		backend:     f.vol,
		path:        name,
		isDirectory: stat.IsDir(),
		readOnly:    !writable,
		stat:        stat,
	}, nil
}

func (f *Fs) Open(name string) (afero.File, error) {
	return f.open(name, false)
}

func (f *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	writable := flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0
	if writable && f.vol.readOnly {
		return nil, checkpoint.From(ErrReadOnly)
	}

	_, err := f.vol.Lookup(name)
	switch {
	case err == nil:
		if flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
			return nil, checkpoint.From(ErrAlreadyExists)
		}
	case errors.Is(err, ErrNotFound) && flag&os.O_CREATE != 0:
		if _, err := f.vol.Create(name); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	file, err := f.open(name, writable)
	if err != nil {
		return nil, err
	}
	if flag&os.O_TRUNC != 0 && !file.isDirectory {
		if err := file.Truncate(0); err != nil {
			return nil, err
		}
	}
	if flag&os.O_APPEND != 0 {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func (f *Fs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (f *Fs) Mkdir(name string, perm os.FileMode) error {
	_, err := f.vol.Mkdir(name)
	return err
}

func (f *Fs) MkdirAll(p string, perm os.FileMode) error {
	parts := splitPath(p)
	current := ""
	for _, part := range parts {
		current = current + "/" + part
		stat, err := f.vol.Getattr(current)
		switch {
		case err == nil:
			if !stat.IsDir() {
				return checkpoint.From(ErrNotADirectory)
			}
		case errors.Is(err, ErrNotFound):
			if _, err := f.vol.Mkdir(current); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

func (f *Fs) Remove(name string) error {
	stat, err := f.vol.Getattr(name)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return f.vol.Rmdir(name)
	}
	return f.vol.Unlink(name)
}

func (f *Fs) RemoveAll(p string) error {
	stat, err := f.vol.Getattr(p)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if stat.IsDir() {
		children, err := f.vol.ReadDir(p)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := f.RemoveAll(path.Join(p, child.Name())); err != nil {
				return err
			}
		}
		if strings.Trim(p, "/\\") == "" {
			return nil // the root directory itself stays
		}
		return f.vol.Rmdir(p)
	}
	return f.vol.Unlink(p)
}

func (f *Fs) Rename(oldname, newname string) error {
	return f.vol.Rename(oldname, newname)
}

func (f *Fs) Stat(name string) (os.FileInfo, error) {
	return f.vol.Getattr(name)
}

// Chmod only projects the write permission onto the read-only attribute;
// FAT has no further permission model.
func (f *Fs) Chmod(name string, mode os.FileMode) error {
	return f.vol.setAttr(name, func(e *ExtendedEntryHeader) {
		if mode&0o200 == 0 {
			e.Attribute |= AttrReadOnly
		} else {
			e.Attribute &^= AttrReadOnly
		}
	})
}

func (f *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.From(syscall.EPERM)
}

func (f *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return f.vol.setAttr(name, func(e *ExtendedEntryHeader) {
		e.WriteDate = EncodeDate(mtime)
		e.WriteTime = EncodeTime(mtime)
		e.LastAccessDate = EncodeDate(atime)
	})
}

// setAttr applies fn to the entry header at path and persists it under the
// file's lock.
func (fs *FS) setAttr(p string, fn func(*ExtendedEntryHeader)) error {
	if fs.readOnly {
		return checkpoint.From(ErrReadOnly)
	}
	rp, err := fs.mustResolve(p)
	if err != nil {
		return err
	}
	if rp.isRoot {
		return checkpoint.From(ErrIsADirectory)
	}

	shortSlot := rp.entry.slotStart + rp.entry.slotCount - 1
	l := fs.fileLocks.get(fileKey(rp.parentCluster, rp.entry.slotStart))
	l.Lock()
	defer l.Unlock()

	e, err := fs.findEntryAtSlot(rp.parentCluster, shortSlot)
	if err != nil {
		return err
	}
	fn(e)
	return fs.updateEntryHeader(rp.parentCluster, e)
}
