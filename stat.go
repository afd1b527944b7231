package fat32

import (
	"os"
	"time"
)

// FileInfo adapts the entry into the standard os.FileInfo shape used by the
// Getattr and ReadDir operations.
func (h *ExtendedEntryHeader) FileInfo() os.FileInfo {
	return entryHeaderFileInfo{*h}
}

type entryHeaderFileInfo struct {
	entry ExtendedEntryHeader
}

func (e entryHeaderFileInfo) Name() string {
	return e.entry.DisplayName()
}

func (e entryHeaderFileInfo) Size() int64 {
	return int64(e.entry.FileSize)
}

func (e entryHeaderFileInfo) Mode() os.FileMode {
	mode := os.FileMode(0o755)
	if e.entry.Attribute&AttrReadOnly != 0 {
		mode = 0o555
	}
	if e.IsDir() {
		mode |= os.ModeDir
	}
	return mode
}

func (e entryHeaderFileInfo) ModTime() time.Time {
	// combineDateTime returns the zero time for an invalid date so callers
	// can use time.Time.IsZero().
	return combineDateTime(e.entry.WriteDate, e.entry.WriteTime)
}

func (e entryHeaderFileInfo) IsDir() bool {
	return e.entry.IsDirectory()
}

func (e entryHeaderFileInfo) Sys() interface{} {
	return e.entry
}
