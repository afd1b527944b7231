package fat32

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aligator/checkpoint"
)

// maxFileSize is the largest byte count the 32-bit size field of a
// directory entry can record.
const maxFileSize = int64(0xFFFFFFFF)

// Config carries mount options.
type Config struct {
	// ReadOnly rejects every mutating operation with ErrReadOnly even when
	// the device is writable.
	ReadOnly bool
	// Logger receives structured diagnostics. Nil means silent.
	Logger *slog.Logger
}

// FS is a mounted FAT32 volume. It exposes the engine's operation
// vocabulary: Lookup, ReadDir, ReadAt, WriteAt, Create, Mkdir, Unlink,
// Rmdir, Truncate, Rename, Getattr and Sync.
//
// An FS may be shared by concurrent callers. The FAT table has its own
// mutex; directories and files are guarded by striped locks so independent
// operations do not serialize against each other.
type FS struct {
	dev    BlockDevice
	params VolumeParameters
	fat    *fatTable

	dirLocks  lockMap
	fileLocks lockMap

	readOnly bool
	log      *slog.Logger
}

// lockMap hands out one RWMutex per key. Locks are created on first use and
// kept for the lifetime of the mount; the population is bounded by the
// number of distinct directories and files touched.
type lockMap struct {
	mu    sync.Mutex
	locks map[uint64]*sync.RWMutex
}

func (lm *lockMap) get(key uint64) *sync.RWMutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.locks == nil {
		lm.locks = make(map[uint64]*sync.RWMutex)
	}
	l, ok := lm.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		lm.locks[key] = l
	}
	return l
}

// Mount reads and validates the volume structures on dev and returns an
// engine instance over them.
func Mount(dev BlockDevice) (*FS, error) {
	return MountConfig(dev, Config{})
}

// MountConfig is Mount with options.
func MountConfig(dev BlockDevice, cfg Config) (*FS, error) {
	sector := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(0, sector); err != nil {
		return nil, checkpoint.Wrap(err, ErrDeviceIO)
	}
	params, err := ParseBootSector(sector)
	if err != nil {
		return nil, err
	}
	if int(params.BytesPerSector) != dev.SectorSize() {
		return nil, checkpoint.From(ErrCorruptBootSector)
	}

	fs := &FS{
		dev:      dev,
		params:   params,
		readOnly: cfg.ReadOnly,
		log:      cfg.Logger,
	}

	// The FSInfo sector only seeds the next-fit scan position; the free
	// count is always recounted from the table itself during load.
	nextFree := uint32(0)
	if fsi, err := fs.readFSInfo(); err == nil {
		nextFree = fsi.nextFree
	}

	fat, err := loadFAT(dev, &fs.params, nextFree)
	if err != nil {
		return nil, err
	}
	fs.fat = fat
	fs.debug("mounted volume",
		slog.String("label", params.Label),
		slog.Uint64("totalSectors", uint64(params.TotalSectors)),
		slog.Uint64("freeClusters", uint64(fat.freeCount())))
	return fs, nil
}

func (fs *FS) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if fs.log == nil {
		return
	}
	fs.log.LogAttrs(context.Background(), level, msg, attrs...)
}

func (fs *FS) debug(msg string, attrs ...slog.Attr) { fs.logattrs(slog.LevelDebug, msg, attrs...) }
func (fs *FS) warn(msg string, attrs ...slog.Attr)  { fs.logattrs(slog.LevelWarn, msg, attrs...) }
func (fs *FS) logerror(msg string, attrs ...slog.Attr) {
	fs.logattrs(slog.LevelError, msg, attrs...)
}

// Params returns the immutable volume geometry.
func (fs *FS) Params() VolumeParameters { return fs.params }

// FreeClusters returns the current free cluster count, maintained
// incrementally by the FAT table manager.
func (fs *FS) FreeClusters() uint32 { return fs.fat.freeCount() }

// Label returns the volume label from the root directory entry, falling
// back to the boot sector copy.
func (fs *FS) Label() string {
	entries, err := fs.readDirEntries(fs.params.RootCluster)
	if err != nil {
		return fs.params.Label
	}
	for i := range entries {
		if entries[i].IsVolumeLabel() {
			return strings.TrimRight(string(entries[i].Name[:]), " ")
		}
	}
	return fs.params.Label
}

func (fs *FS) dirKey(cluster uint32) uint64 { return uint64(cluster) }

func fileKey(parentCluster uint32, slotStart int) uint64 {
	return uint64(parentCluster)<<32 | uint64(uint32(slotStart)) | 1<<63
}

// readDirRaw reads the full byte content of a directory chain.
func (fs *FS) readDirRaw(dirCluster uint32) ([]byte, []uint32, error) {
	chain, err := fs.fat.chain(dirCluster)
	if err != nil {
		return nil, nil, err
	}
	raw := make([]byte, int64(len(chain))*int64(fs.params.BytesPerCluster))
	if err := fs.transferRange(chain, 0, raw, false); err != nil {
		return nil, nil, err
	}
	return raw, chain, nil
}

// readDirEntries decodes a directory's entries under its read lock.
func (fs *FS) readDirEntries(dirCluster uint32) ([]ExtendedEntryHeader, error) {
	l := fs.dirLocks.get(fs.dirKey(dirCluster))
	l.RLock()
	defer l.RUnlock()
	raw, _, err := fs.readDirRaw(dirCluster)
	if err != nil {
		return nil, err
	}
	return decodeDirEntries(raw)
}

// writeDirSlots writes encoded slot bytes at the given slot index of a
// directory chain. The caller holds the directory's write lock.
func (fs *FS) writeDirSlots(chain []uint32, slotIdx int, data []byte) error {
	return fs.transferRange(chain, int64(slotIdx)*sizeDirEntry, data, true)
}

// updateEntryHeader rewrites the short-name slot of an existing entry, used
// after writes and truncates to persist size, first cluster and timestamps.
// The directory write lock is taken here.
func (fs *FS) updateEntryHeader(parentCluster uint32, e *ExtendedEntryHeader) error {
	l := fs.dirLocks.get(fs.dirKey(parentCluster))
	l.Lock()
	defer l.Unlock()

	chain, err := fs.fat.chain(parentCluster)
	if err != nil {
		return err
	}
	short := *e
	short.ExtendedName = "" // only the 32-byte short slot is rewritten
	data, err := encodeEntrySlots(&short)
	if err != nil {
		return err
	}
	return fs.writeDirSlots(chain, e.slotStart+e.slotCount-1, data)
}

// findEntryAtSlot re-decodes a directory and returns the entry whose short
// slot sits at shortSlot. Mutating operations re-read the entry after taking
// its lock so they never act on a stale header.
func (fs *FS) findEntryAtSlot(parentCluster uint32, shortSlot int) (*ExtendedEntryHeader, error) {
	entries, err := fs.readDirEntries(parentCluster)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		e := &entries[i]
		if e.slotStart+e.slotCount-1 == shortSlot {
			return e, nil
		}
	}
	return nil, checkpoint.From(ErrNotFound)
}

// Lookup resolves path to its directory entry without mutating anything.
// The root directory is returned as a synthetic entry.
func (fs *FS) Lookup(path string) (*ExtendedEntryHeader, error) {
	rp, err := fs.mustResolve(path)
	if err != nil {
		return nil, err
	}
	if rp.isRoot {
		root := &ExtendedEntryHeader{}
		copy(root.Name[:], "           ")
		root.Attribute = AttrDirectory
		root.SetFirstCluster(fs.params.RootCluster)
		return root, nil
	}
	return rp.entry, nil
}

// Getattr returns the os.FileInfo view of the entry at path.
func (fs *FS) Getattr(path string) (os.FileInfo, error) {
	e, err := fs.Lookup(path)
	if err != nil {
		return nil, err
	}
	return e.FileInfo(), nil
}

// ReadDir lists a directory. Deleted slots never decode into entries; the
// volume label and the dot entries are filtered here.
func (fs *FS) ReadDir(path string) ([]os.FileInfo, error) {
	rp, err := fs.mustResolve(path)
	if err != nil {
		return nil, err
	}
	dirCluster := fs.params.RootCluster
	if !rp.isRoot {
		if !rp.entry.IsDirectory() {
			return nil, checkpoint.From(ErrNotADirectory)
		}
		dirCluster = rp.entry.FirstCluster()
	}
	entries, err := fs.readDirEntries(dirCluster)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.IsVolumeLabel() {
			continue
		}
		if name := e.ShortNameString(); name == "." || name == ".." {
			continue
		}
		infos = append(infos, e.FileInfo())
	}
	return infos, nil
}

// ReadAt copies file content starting at off into dst, clamped to the file
// size. It returns the number of bytes read.
func (fs *FS) ReadAt(path string, dst []byte, off int64) (int, error) {
	rp, err := fs.mustResolve(path)
	if err != nil {
		return 0, err
	}
	if rp.isRoot || rp.entry.IsDirectory() {
		return 0, checkpoint.From(ErrIsADirectory)
	}

	l := fs.fileLocks.get(fileKey(rp.parentCluster, rp.entry.slotStart))
	l.RLock()
	defer l.RUnlock()

	// Size and chain are snapshotted here; concurrent readers share the
	// lock.
	e, err := fs.findEntryAtSlot(rp.parentCluster, rp.entry.slotStart+rp.entry.slotCount-1)
	if err != nil {
		return 0, err
	}
	return fs.readFileAt(e.FirstCluster(), int64(e.FileSize), off, dst)
}

// WriteAt writes p at off, growing the file as needed. The data clusters are
// durably written before the directory entry's size is updated. It returns
// len(p) on success; partial writes only occur together with an error.
func (fs *FS) WriteAt(path string, p []byte, off int64) (int, error) {
	if fs.readOnly {
		return 0, checkpoint.From(ErrReadOnly)
	}
	if off > maxFileSize-int64(len(p)) {
		return 0, checkpoint.From(ErrFileTooLarge)
	}
	rp, err := fs.mustResolve(path)
	if err != nil {
		return 0, err
	}
	if rp.isRoot || rp.entry.IsDirectory() {
		return 0, checkpoint.From(ErrIsADirectory)
	}

	shortSlot := rp.entry.slotStart + rp.entry.slotCount - 1
	l := fs.fileLocks.get(fileKey(rp.parentCluster, rp.entry.slotStart))
	l.Lock()
	defer l.Unlock()

	e, err := fs.findEntryAtSlot(rp.parentCluster, shortSlot)
	if err != nil {
		return 0, err
	}

	first := e.FirstCluster()
	if err := fs.writeFileAt(&first, int64(e.FileSize), off, p); err != nil {
		return 0, err
	}

	if end := off + int64(len(p)); end > int64(e.FileSize) {
		e.FileSize = uint32(end)
	}
	e.SetFirstCluster(first)
	now := time.Now()
	e.WriteDate = EncodeDate(now)
	e.WriteTime = EncodeTime(now)
	e.Attribute |= AttrArchive
	if err := fs.updateEntryHeader(rp.parentCluster, e); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Truncate resizes the file at path. Growing zero-fills; shrinking frees
// the trailing clusters beyond the cluster covering the new size.
func (fs *FS) Truncate(path string, size int64) error {
	if fs.readOnly {
		return checkpoint.From(ErrReadOnly)
	}
	if size < 0 {
		return checkpoint.From(ErrInvalidName)
	}
	if size > maxFileSize {
		return checkpoint.From(ErrFileTooLarge)
	}
	rp, err := fs.mustResolve(path)
	if err != nil {
		return err
	}
	if rp.isRoot || rp.entry.IsDirectory() {
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

	first := e.FirstCluster()
	switch {
	case size > int64(e.FileSize):
		if _, err := fs.ensureCapacity(&first, size); err != nil {
			return err
		}
	case size < int64(e.FileSize):
		first, err = fs.truncateClusters(first, size)
		if err != nil {
			return err
		}
	default:
		return nil
	}

	e.FileSize = uint32(size)
	e.SetFirstCluster(first)
	now := time.Now()
	e.WriteDate = EncodeDate(now)
	e.WriteTime = EncodeTime(now)
	return fs.updateEntryHeader(rp.parentCluster, e)
}

// Create adds an empty file at path. The new file has no cluster chain;
// the first write allocates one.
func (fs *FS) Create(path string) (*ExtendedEntryHeader, error) {
	return fs.createEntry(path, false)
}

// Mkdir adds a directory at path with one zeroed cluster holding the dot
// entries.
func (fs *FS) Mkdir(path string) (*ExtendedEntryHeader, error) {
	return fs.createEntry(path, true)
}

func (fs *FS) createEntry(path string, dir bool) (*ExtendedEntryHeader, error) {
	if fs.readOnly {
		return nil, checkpoint.From(ErrReadOnly)
	}
	rp, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if rp.isRoot || rp.entry != nil {
		return nil, checkpoint.From(ErrAlreadyExists)
	}
	if err := validateLongName(rp.name); err != nil {
		return nil, err
	}

	l := fs.dirLocks.get(fs.dirKey(rp.parentCluster))
	l.Lock()
	defer l.Unlock()

	raw, chain, err := fs.readDirRaw(rp.parentCluster)
	if err != nil {
		return nil, err
	}
	siblings, err := decodeDirEntries(raw)
	if err != nil {
		return nil, err
	}
	// Somebody may have created the name between resolve and lock.
	for i := range siblings {
		if !siblings[i].IsVolumeLabel() && matches(&siblings[i], rp.name) {
			return nil, checkpoint.From(ErrAlreadyExists)
		}
	}

	taken := func(name [11]byte) bool {
		for i := range siblings {
			if siblings[i].Name == name {
				return true
			}
		}
		return false
	}

	now := time.Now()
	entry := ExtendedEntryHeader{}
	entry.CreateDate = EncodeDate(now)
	entry.CreateTime = EncodeTime(now)
	entry.WriteDate = entry.CreateDate
	entry.WriteTime = entry.CreateTime
	entry.LastAccessDate = entry.CreateDate

	if fitsShortName(rp.name) {
		base, ext := splitBaseExt(rp.name)
		entry.Name = packShortName(base, ext)
	} else {
		entry.ExtendedName = rp.name
		entry.Name, err = deriveShortName(rp.name, taken)
		if err != nil {
			return nil, err
		}
	}

	if dir {
		entry.Attribute = AttrDirectory
		// The directory's own cluster is fully initialized before the
		// parent references it.
		cluster, err := fs.fat.allocate(0)
		if err != nil {
			return nil, err
		}
		if err := fs.zeroCluster(cluster); err != nil {
			return nil, err
		}
		entry.SetFirstCluster(cluster)
		if err := fs.writeDotEntries(cluster, rp.parentCluster, now); err != nil {
			return nil, err
		}
	} else {
		entry.Attribute = AttrArchive
	}

	data, err := encodeEntrySlots(&entry)
	if err != nil {
		return nil, err
	}
	count := len(data) / sizeDirEntry

	slot, ok := findFreeSlotRun(raw, count)
	if !ok {
		// The directory is full: extend its chain once and retry.
		tail := chain[len(chain)-1]
		added, err := fs.fat.allocate(tail)
		if err != nil {
			return nil, err
		}
		if err := fs.zeroCluster(added); err != nil {
			return nil, err
		}
		raw, chain, err = fs.readDirRaw(rp.parentCluster)
		if err != nil {
			return nil, err
		}
		slot, ok = findFreeSlotRun(raw, count)
		if !ok {
			return nil, checkpoint.From(ErrVolumeFull)
		}
	}

	if err := fs.writeDirSlots(chain, slot, data); err != nil {
		return nil, err
	}
	entry.slotStart = slot
	entry.slotCount = count
	fs.debug("created entry",
		slog.String("name", rp.name),
		slog.Bool("dir", dir),
		slog.Int("slot", slot))
	return &entry, nil
}

// writeDotEntries populates a fresh directory cluster with its "." and ".."
// entries. A parent that is the root directory is stored as cluster 0.
func (fs *FS) writeDotEntries(self, parent uint32, now time.Time) error {
	if parent == fs.params.RootCluster {
		parent = 0
	}
	dot := EntryHeader{Attribute: AttrDirectory}
	copy(dot.Name[:], ".          ")
	dot.SetFirstCluster(self)
	dot.CreateDate, dot.CreateTime = EncodeDate(now), EncodeTime(now)
	dot.WriteDate, dot.WriteTime = dot.CreateDate, dot.CreateTime

	dotdot := dot
	copy(dotdot.Name[:], "..         ")
	dotdot.SetFirstCluster(parent)

	var data []byte
	for _, h := range []EntryHeader{dot, dotdot} {
		b, err := encodeEntrySlots(&ExtendedEntryHeader{EntryHeader: h})
		if err != nil {
			return err
		}
		data = append(data, b...)
	}
	chain := []uint32{self}
	return fs.writeDirSlots(chain, 0, data)
}

// Unlink removes the file at path: its slots are marked deleted and its
// cluster chain is freed.
func (fs *FS) Unlink(path string) error {
	return fs.removeEntry(path, false)
}

// Rmdir removes the directory at path, which must contain nothing but the
// dot entries.
func (fs *FS) Rmdir(path string) error {
	return fs.removeEntry(path, true)
}

func (fs *FS) removeEntry(path string, dir bool) error {
	if fs.readOnly {
		return checkpoint.From(ErrReadOnly)
	}
	rp, err := fs.mustResolve(path)
	if err != nil {
		return err
	}
	if rp.isRoot {
		return checkpoint.From(ErrIsADirectory)
	}
	if dir && !rp.entry.IsDirectory() {
		return checkpoint.From(ErrNotADirectory)
	}
	if !dir && rp.entry.IsDirectory() {
		return checkpoint.From(ErrIsADirectory)
	}

	if dir {
		children, err := fs.readDirEntries(rp.entry.FirstCluster())
		if err != nil {
			return err
		}
		for i := range children {
			name := children[i].ShortNameString()
			if name == "." || name == ".." || children[i].IsVolumeLabel() {
				continue
			}
			return checkpoint.From(ErrNotEmpty)
		}
	}

	// The entry's own lock is held across slot deletion and chain release
	// so an in-flight write on the same file cannot extend a chain that is
	// being freed. It is taken before the directory lock, matching the
	// order the write path uses.
	shortSlot := rp.entry.slotStart + rp.entry.slotCount - 1
	fl := fs.fileLocks.get(fileKey(rp.parentCluster, rp.entry.slotStart))
	fl.Lock()
	defer fl.Unlock()

	e, err := fs.findEntryAtSlot(rp.parentCluster, shortSlot)
	if err != nil {
		return err
	}

	l := fs.dirLocks.get(fs.dirKey(rp.parentCluster))
	l.Lock()
	first := e.FirstCluster()
	err = fs.deleteSlots(rp.parentCluster, e.slotStart, e.slotCount)
	l.Unlock()
	if err != nil {
		return err
	}

	if first != 0 {
		if _, err := fs.fat.truncateFrom(first, 0); err != nil {
			return err
		}
	}
	return nil
}

// deleteSlots marks a slot run deleted. The slots stay physically intact so
// a later create can reuse them; only the marker byte changes.
func (fs *FS) deleteSlots(dirCluster uint32, slotStart, slotCount int) error {
	raw, chain, err := fs.readDirRaw(dirCluster)
	if err != nil {
		return err
	}
	for s := slotStart; s < slotStart+slotCount; s++ {
		off := s * sizeDirEntry
		if off >= len(raw) {
			return checkpoint.From(ErrInvalidCluster)
		}
		raw[off] = slotDeleted
		if err := fs.writeDirSlots(chain, s, raw[off:off+sizeDirEntry]); err != nil {
			return err
		}
	}
	return nil
}

// Rename moves the entry at oldPath to newPath on the same volume. The
// entry keeps its content chain, size and timestamps; only directory slots
// change. Renaming onto an existing name fails with ErrAlreadyExists.
func (fs *FS) Rename(oldPath, newPath string) error {
	if fs.readOnly {
		return checkpoint.From(ErrReadOnly)
	}
	src, err := fs.mustResolve(oldPath)
	if err != nil {
		return err
	}
	if src.isRoot {
		return checkpoint.From(ErrIsADirectory)
	}
	dst, err := fs.resolve(newPath)
	if err != nil {
		return err
	}
	if dst.isRoot {
		return checkpoint.From(ErrAlreadyExists)
	}
	// A case-only rename resolves the destination to the source itself;
	// that is a legal rename, not a name collision.
	sameEntry := func(e *ExtendedEntryHeader) bool {
		return dst.parentCluster == src.parentCluster && e.slotStart == src.entry.slotStart
	}
	if dst.entry != nil && !sameEntry(dst.entry) {
		return checkpoint.From(ErrAlreadyExists)
	}
	if err := validateLongName(dst.name); err != nil {
		return err
	}

	// Lock both directories in a stable order to avoid lock inversion.
	locks := []*sync.RWMutex{fs.dirLocks.get(fs.dirKey(src.parentCluster))}
	if dst.parentCluster != src.parentCluster {
		other := fs.dirLocks.get(fs.dirKey(dst.parentCluster))
		if dst.parentCluster < src.parentCluster {
			locks = []*sync.RWMutex{other, locks[0]}
		} else {
			locks = append(locks, other)
		}
	}
	for _, l := range locks {
		l.Lock()
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	raw, chain, err := fs.readDirRaw(dst.parentCluster)
	if err != nil {
		return err
	}
	siblings, err := decodeDirEntries(raw)
	if err != nil {
		return err
	}
	for i := range siblings {
		if siblings[i].IsVolumeLabel() || sameEntry(&siblings[i]) {
			continue
		}
		if matches(&siblings[i], dst.name) {
			return checkpoint.From(ErrAlreadyExists)
		}
	}
	taken := func(name [11]byte) bool {
		for i := range siblings {
			if sameEntry(&siblings[i]) {
				continue
			}
			if siblings[i].Name == name {
				return true
			}
		}
		return false
	}

	entry := *src.entry
	entry.ExtendedName = ""
	if fitsShortName(dst.name) {
		base, ext := splitBaseExt(dst.name)
		entry.Name = packShortName(base, ext)
	} else {
		entry.ExtendedName = dst.name
		entry.Name, err = deriveShortName(dst.name, taken)
		if err != nil {
			return err
		}
	}

	data, err := encodeEntrySlots(&entry)
	if err != nil {
		return err
	}
	count := len(data) / sizeDirEntry
	slot, ok := findFreeSlotRun(raw, count)
	if !ok {
		tail := chain[len(chain)-1]
		added, err := fs.fat.allocate(tail)
		if err != nil {
			return err
		}
		if err := fs.zeroCluster(added); err != nil {
			return err
		}
		raw, chain, err = fs.readDirRaw(dst.parentCluster)
		if err != nil {
			return err
		}
		slot, ok = findFreeSlotRun(raw, count)
		if !ok {
			return checkpoint.From(ErrVolumeFull)
		}
	}
	// The new slots are written before the old ones are released, so a
	// crash in between leaves a duplicate name rather than a lost file.
	if err := fs.writeDirSlots(chain, slot, data); err != nil {
		return err
	}
	if err := fs.deleteSlots(src.parentCluster, src.entry.slotStart, src.entry.slotCount); err != nil {
		return err
	}

	// A moved directory's ".." entry must follow it to the new parent.
	if entry.IsDirectory() && src.parentCluster != dst.parentCluster {
		if err := fs.rewriteDotDot(entry.FirstCluster(), dst.parentCluster); err != nil {
			return err
		}
	}
	return nil
}

// rewriteDotDot points the ".." entry of a directory at its new parent.
func (fs *FS) rewriteDotDot(dirCluster, newParent uint32) error {
	raw, chain, err := fs.readDirRaw(dirCluster)
	if err != nil {
		return err
	}
	entries, err := decodeDirEntries(raw)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ShortNameString() != ".." {
			continue
		}
		e := entries[i]
		if newParent == fs.params.RootCluster {
			newParent = 0
		}
		e.SetFirstCluster(newParent)
		e.ExtendedName = ""
		data, err := encodeEntrySlots(&e)
		if err != nil {
			return err
		}
		return fs.writeDirSlots(chain, e.slotStart, data)
	}
	return nil
}

// Sync persists the FSInfo sector (free count and next-free hint). Data and
// metadata are written through as they change, so this is the only deferred
// state.
func (fs *FS) Sync() error {
	if fs.readOnly {
		return nil
	}
	return fs.writeFSInfo(fs.fat.freeCount(), fs.fat.nextFree())
}
