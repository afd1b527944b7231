package fat32

import "errors"

// These errors cover every failure class the engine reports. They are meant
// to be checked with errors.Is; most call sites decorate them with additional
// context via the checkpoint package.
var (
	// ErrCorruptBootSector is returned when the first sector of the volume is
	// missing its signature bytes or declares impossible geometry.
	ErrCorruptBootSector = errors.New("corrupt boot sector")

	// ErrInvalidCluster is returned when a FAT entry index is out of range or
	// a chain unexpectedly references a free or bad cluster. It also covers
	// cyclic chains, which the chain walker detects via a visited bound.
	ErrInvalidCluster = errors.New("invalid cluster reference")

	// ErrFileTooLarge is returned when a write or truncate would push a
	// file past the 4 GiB size limit of the 32-bit size field.
	ErrFileTooLarge = errors.New("file too large")

	// ErrVolumeFull is returned when no free cluster is available.
	ErrVolumeFull = errors.New("no free cluster available")

	// ErrPartialMirrorWrite is returned when at least one FAT copy was
	// updated but writing a later copy failed. The copies are divergent at
	// this point and the caller must decide whether to keep using the volume.
	ErrPartialMirrorWrite = errors.New("partial FAT mirror write")

	// ErrNotFound is returned when a path component does not exist.
	ErrNotFound = errors.New("no such file or directory")

	// ErrAlreadyExists is returned by create, mkdir and rename when the
	// target name is already taken.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrNotADirectory is returned when an intermediate path component
	// resolves to a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory is returned when a file operation targets a directory.
	ErrIsADirectory = errors.New("is a directory")

	// ErrNotEmpty is returned by rmdir when the directory still contains
	// entries other than the dot entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidName is returned when a name contains characters that cannot
	// be stored or is empty after sanitizing.
	ErrInvalidName = errors.New("invalid file name")

	// ErrNameTooLong is returned when no unique 8.3 alias can be derived for
	// a long name within the bounded number of collision attempts, or the
	// name exceeds the long name limit.
	ErrNameTooLong = errors.New("file name too long")

	// ErrDeviceIO wraps any failure reported by the block device. The engine
	// never retries; retry policy belongs to the device or the caller.
	ErrDeviceIO = errors.New("block device i/o failure")

	// ErrReadOnly is returned by mutating operations on a volume mounted
	// read-only or backed by a read-only device.
	ErrReadOnly = errors.New("read-only filesystem")
)
