package fat32

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/checkpoint"
	"github.com/spf13/afero"
)

// These errors may occur while processing a file.
var (
	ErrReadFile  = errors.New("could not read file completely")
	ErrWriteFile = errors.New("could not write file")
	ErrSeekFile  = errors.New("could not seek inside of the file")
	ErrReadDir   = errors.New("could not read the directory")
)

// fileBackend provides all methods needed from the volume engine for File.
// It mainly exists to be able to mock the engine in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock.go -package fat32
type fileBackend interface {
	ReadAt(path string, dst []byte, off int64) (int, error)
	WriteAt(path string, p []byte, off int64) (int, error)
	Truncate(path string, size int64) error
	ReadDir(path string) ([]os.FileInfo, error)
	Getattr(path string) (os.FileInfo, error)
	Sync() error
}

// File is a handle into a mounted volume implementing afero.File. Handles
// are cheap; all state besides the cursor lives in the volume.
type File struct {
	backend fileBackend
	path    string

	isDirectory bool
	readOnly    bool

	stat   os.FileInfo
	offset int64
}

func (f *File) Close() error {
	if f.backend == nil {
		return nil
	}
	err := f.backend.Sync()
	f.backend = nil
	f.path = ""
	f.isDirectory = false
	f.stat = nil
	f.offset = 0
	return err
}

// refreshStat re-fetches the directory entry after a mutation so the cached
// size stays accurate.
func (f *File) refreshStat() error {
	stat, err := f.backend.Getattr(f.path)
	if err != nil {
		return err
	}
	f.stat = stat
	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	// Reading a file if the size has been already reached, makes no sense.
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	n, err = f.backend.ReadAt(f.path, p, f.offset)
	f.offset += int64(n)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	return n, nil
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	// Reading over the end makes no sense.
	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	n, err = f.backend.ReadAt(f.path, p, off)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	if n < len(p) {
		return n, checkpoint.Wrap(io.EOF, ErrReadFile)
	}
	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read and
// Write operations except ReadAt and WriteAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
// Writable handles may seek past the end; the gap zero-fills on write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || (f.readOnly && offset > f.stat.Size()) {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	n, err = f.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	if f.readOnly {
		return 0, checkpoint.Wrap(ErrReadOnly, ErrWriteFile)
	}
	if f.isDirectory {
		return 0, checkpoint.Wrap(ErrIsADirectory, ErrWriteFile)
	}
	n, err = f.backend.WriteAt(f.path, p, off)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	if err := f.refreshStat(); err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	return n, nil
}

func (f *File) Name() string {
	if f.path == "" || f.path == "/" {
		return "/"
	}
	return f.stat.Name()
}

// Readdir reads the contents of a directory.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.backend.ReadDir(f.path)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	end := len(content)

	if int64(len(content)) < f.offset+int64(count) {
		count = len(content) - int(f.offset)
		err = io.EOF
	}

	if count >= 0 {
		end = int(f.offset) + count
	}

	content = content[f.offset:end]

	if count > 0 {
		f.offset += int64(count)
	} else if count < 0 {
		f.offset = int64(end)
	}

	return content, err
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

func (f *File) Sync() error {
	if f.backend == nil {
		return nil
	}
	return f.backend.Sync()
}

func (f *File) Truncate(size int64) error {
	if f.readOnly {
		return checkpoint.Wrap(ErrReadOnly, ErrWriteFile)
	}
	if err := f.backend.Truncate(f.path, size); err != nil {
		return checkpoint.Wrap(err, ErrWriteFile)
	}
	return f.refreshStat()
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
