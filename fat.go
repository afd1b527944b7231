package fat32

import (
	"encoding/binary"
	"sync"

	"github.com/aligator/checkpoint"
)

// fatEntry is one 32-bit slot of the File Allocation Table. Only the low 28
// bits carry the value; the top 4 bits are reserved and preserved on write.
type fatEntry uint32

const (
	entryFree     = 0x00000000
	entryBad      = 0x0FFFFFF7
	entryEOC      = 0x0FFFFFFF
	entryMask     = 0x0FFFFFFF
	reservedMask  = 0xF0000000
	eocRangeStart = 0x0FFFFFF8
)

// Value returns the 28-bit payload of the entry.
func (e fatEntry) Value() uint32 { return uint32(e) & entryMask }

// IsFree reports whether the slot marks an unallocated cluster.
func (e fatEntry) IsFree() bool { return e.Value() == entryFree }

// IsBad reports whether the slot marks a damaged cluster.
func (e fatEntry) IsBad() bool { return e.Value() == entryBad }

// IsEOC reports whether the slot terminates a cluster chain. Any value in
// the high sentinel range counts.
func (e fatEntry) IsEOC() bool { return e.Value() >= eocRangeStart && e.Value() <= entryEOC }

// IsNextCluster reports whether the slot links to a following cluster.
func (e fatEntry) IsNextCluster() bool { return e.Value() >= 2 && e.Value() < entryBad }

// IsReserved reports whether the slot holds one of the values that are
// neither free, bad, end-of-chain nor a chain link.
func (e fatEntry) IsReserved() bool {
	return !e.IsFree() && !e.IsBad() && !e.IsEOC() && !e.IsNextCluster()
}

// fatTable owns the in-memory view of the allocation table and all mutations
// to it. Every mutating operation writes the affected sector through to each
// redundant FAT copy before returning. A single mutex guards the table; it is
// held only for the duration of a table operation, never across directory
// rewrites or data transfers.
type fatTable struct {
	mu      sync.Mutex
	dev     BlockDevice
	params  *VolumeParameters
	entries []fatEntry
	free    uint32
	// lastAlloc is the next-fit pointer: allocation scans start at the
	// cluster after the most recent allocation and wrap around.
	lastAlloc uint32
}

// loadFAT reads the active FAT copy into memory and counts the free
// clusters. nextFreeHint seeds the next-fit pointer when valid.
func loadFAT(dev BlockDevice, params *VolumeParameters, nextFreeHint uint32) (*fatTable, error) {
	ss := int(params.BytesPerSector)
	entriesPerSector := ss / 4
	raw := make([]byte, ss)

	copyIdx := params.ActiveFAT()
	if copyIdx < 0 {
		copyIdx = 0
	}

	t := &fatTable{
		dev:       dev,
		params:    params,
		entries:   make([]fatEntry, int(params.SectorsPerFAT)*entriesPerSector),
		lastAlloc: 2,
	}
	if uint32(len(t.entries)) <= params.MaxCluster {
		// The declared FAT is too small to describe all data clusters.
		return nil, checkpoint.From(ErrCorruptBootSector)
	}
	base := params.FATStartSector + uint32(copyIdx)*params.SectorsPerFAT
	for s := uint32(0); s < params.SectorsPerFAT; s++ {
		if err := dev.ReadSector(base+s, raw); err != nil {
			return nil, checkpoint.Wrap(err, ErrDeviceIO)
		}
		for i := 0; i < entriesPerSector; i++ {
			t.entries[int(s)*entriesPerSector+i] = fatEntry(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	}
	for c := uint32(2); c <= params.MaxCluster; c++ {
		if t.entries[c].IsFree() {
			t.free++
		}
	}
	if nextFreeHint >= 2 && nextFreeHint <= params.MaxCluster {
		t.lastAlloc = nextFreeHint
	}
	return t, nil
}

// validCluster reports whether c can appear as a chain member.
func (t *fatTable) validCluster(c uint32) bool {
	return c >= 2 && c <= t.params.MaxCluster
}

// flushEntry writes the FAT sector containing cluster's entry to every
// redundant copy, in table order. When mirroring is disabled only the active
// copy is written. A failure after at least one successful copy is reported
// as ErrPartialMirrorWrite so the caller knows the copies diverge.
func (t *fatTable) flushEntry(cluster uint32) error {
	ss := uint32(t.params.BytesPerSector)
	entriesPerSector := ss / 4
	sectorIdx := cluster / entriesPerSector
	raw := make([]byte, ss)
	first := sectorIdx * entriesPerSector
	for i := uint32(0); i < entriesPerSector; i++ {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(t.entries[first+i]))
	}

	active := t.params.ActiveFAT()
	written := 0
	for copyIdx := 0; copyIdx < int(t.params.NumFATs); copyIdx++ {
		if active >= 0 && copyIdx != active {
			continue
		}
		lba := t.params.FATStartSector + uint32(copyIdx)*t.params.SectorsPerFAT + sectorIdx
		if err := t.dev.WriteSector(lba, raw); err != nil {
			if written > 0 {
				return checkpoint.Wrap(err, ErrPartialMirrorWrite)
			}
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
		written++
	}
	return nil
}

// next resolves the successor of cluster. The second return value is true
// when cluster is the end of its chain.
func (t *fatTable) next(cluster uint32) (uint32, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextLocked(cluster)
}

func (t *fatTable) nextLocked(cluster uint32) (uint32, bool, error) {
	if !t.validCluster(cluster) {
		return 0, false, checkpoint.From(ErrInvalidCluster)
	}
	e := t.entries[cluster]
	switch {
	case e.IsEOC():
		return 0, true, nil
	case e.IsNextCluster():
		if !t.validCluster(e.Value()) {
			return 0, false, checkpoint.From(ErrInvalidCluster)
		}
		return e.Value(), false, nil
	default:
		// Free, bad or reserved mid-chain is structural corruption.
		return 0, false, checkpoint.From(ErrInvalidCluster)
	}
}

// chain returns the full cluster chain starting at first. Traversal is
// bounded by the total cluster count so cyclic corruption aborts with
// ErrInvalidCluster instead of looping.
func (t *fatTable) chain(first uint32) ([]uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []uint32
	c := first
	for {
		if uint32(len(out)) > t.params.MaxCluster {
			return nil, checkpoint.From(ErrInvalidCluster)
		}
		if !t.validCluster(c) {
			return nil, checkpoint.From(ErrInvalidCluster)
		}
		out = append(out, c)
		nxt, eoc, err := t.nextLocked(c)
		if err != nil {
			return nil, err
		}
		if eoc {
			return out, nil
		}
		c = nxt
	}
}

// allocate claims one free cluster, marks it end-of-chain and links it after
// tail. A tail of 0 starts a new chain. The free cluster search is next-fit:
// it begins after the most recently allocated cluster and wraps once.
func (t *fatTable) allocate(tail uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tail != 0 && !t.validCluster(tail) {
		return 0, checkpoint.From(ErrInvalidCluster)
	}
	if t.free == 0 {
		return 0, checkpoint.From(ErrVolumeFull)
	}

	found := uint32(0)
	c := t.lastAlloc
	for i := uint32(0); i <= t.params.MaxCluster; i++ {
		c++
		if c > t.params.MaxCluster {
			c = 2
		}
		if t.entries[c].IsFree() {
			found = c
			break
		}
	}
	if found == 0 {
		// free count said otherwise; the table is inconsistent.
		return 0, checkpoint.From(ErrVolumeFull)
	}

	// Mark the new tail first so a crash between the two writes leaks the
	// cluster instead of corrupting the chain.
	t.setLocked(found, entryEOC)
	if err := t.flushEntry(found); err != nil {
		t.setLocked(found, entryFree)
		return 0, err
	}
	if tail != 0 {
		t.setLocked(tail, fatEntry(found))
		if err := t.flushEntry(tail); err != nil {
			return 0, err
		}
	}
	t.free--
	t.lastAlloc = found
	return found, nil
}

// setLocked stores a new 28-bit value, preserving the reserved top bits.
func (t *fatTable) setLocked(cluster uint32, v fatEntry) {
	old := uint32(t.entries[cluster]) & reservedMask
	t.entries[cluster] = fatEntry(old | (uint32(v) & entryMask))
}

// truncateFrom frees every cluster of the chain starting at from. When prev
// is non-zero its entry is rewritten to end-of-chain so the remaining head
// of the chain stays well formed. It returns the number of freed clusters.
func (t *fatTable) truncateFrom(from, prev uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	freed := uint32(0)
	c := from
	for c != 0 {
		if !t.validCluster(c) {
			return freed, checkpoint.From(ErrInvalidCluster)
		}
		if freed > t.params.MaxCluster {
			return freed, checkpoint.From(ErrInvalidCluster)
		}
		nxt, eoc, err := t.nextLocked(c)
		if err != nil {
			return freed, err
		}
		t.setLocked(c, entryFree)
		if err := t.flushEntry(c); err != nil {
			return freed, err
		}
		t.free++
		freed++
		if eoc {
			break
		}
		c = nxt
	}
	if prev != 0 {
		if !t.validCluster(prev) {
			return freed, checkpoint.From(ErrInvalidCluster)
		}
		t.setLocked(prev, entryEOC)
		if err := t.flushEntry(prev); err != nil {
			return freed, err
		}
	}
	return freed, nil
}

// freeCount returns the incrementally maintained number of free clusters.
func (t *fatTable) freeCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.free
}

// nextFree returns the next-fit pointer, persisted into the FSInfo sector on
// Sync so a later mount resumes scanning near where this one stopped.
func (t *fatTable) nextFree() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastAlloc
}
