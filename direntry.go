// Directory entry codec: the structs here match the 32-byte on-disk slot
// layout, and the functions translate between raw directory cluster bytes and
// decoded entries, including the long-name fragment machinery.

package fat32

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/aligator/checkpoint"
	"github.com/elliotwutingfeng/asciiset"
	"golang.org/x/text/encoding/unicode"
)

// Attribute bits of a directory entry.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10
	AttrArchive     = 0x20

	// attrLongName marks a slot as a long-name fragment.
	attrLongName     = 0x0F
	attrLongNameMask = 0x3F
)

const (
	// slotDeleted in the first name byte marks a reusable slot.
	slotDeleted = 0xE5
	// slotEndOfDir in the first name byte ends the directory scan; no
	// further entries follow in this cluster chain.
	slotEndOfDir = 0x00

	// lastLongEntryFlag is set on the physically first (logically last)
	// fragment of a long-name sequence.
	lastLongEntryFlag = 0x40

	// charsPerLongSlot is the number of UCS-2 code units per fragment.
	charsPerLongSlot = 13

	// maxLongNameLength bounds the reconstructed long name.
	maxLongNameLength = 255

	// maxShortNameAttempts bounds the ~N collision search during short
	// name derivation.
	maxShortNameAttempts = 9999
)

// validShortNameChars are the bytes allowed in a stored 8.3 name.
var validShortNameChars, _ = asciiset.MakeASCIISet("!#$%&'()-0123456789@ABCDEFGHIJKLMNOPQRSTUVWXYZ^_`{}~")

// utf16le translates the UCS-2 code units of long-name fragments. Long names
// are stored as UTF-16LE without a byte order mark.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EntryHeader matches the 32-byte short-name directory slot.
type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// LongFilenameEntry matches a 32-byte long-name fragment slot.
type LongFilenameEntry struct {
	Sequence  byte
	First     [5]uint16
	Attribute byte
	EntryType byte
	Checksum  byte
	Second    [6]uint16
	Zero      [2]byte
	Third     [2]uint16
}

// ExtendedEntryHeader is a short-name entry together with its reconstructed
// long name, when the preceding fragments were present and their checksums
// matched. It also remembers where inside the directory the entry's slot run
// lives so mutations can rewrite or reclaim it.
type ExtendedEntryHeader struct {
	EntryHeader
	ExtendedName string

	// slotStart is the index of the first slot belonging to this entry
	// (its first long-name fragment, or the short entry itself), slotCount
	// the total number of slots including the short entry.
	slotStart int
	slotCount int
}

// FirstCluster assembles the split 32-bit first cluster field.
func (h *EntryHeader) FirstCluster() uint32 {
	return uint32(h.FirstClusterHI)<<16 | uint32(h.FirstClusterLO)
}

// SetFirstCluster splits cluster into the two on-disk halves.
func (h *EntryHeader) SetFirstCluster(cluster uint32) {
	h.FirstClusterHI = uint16(cluster >> 16)
	h.FirstClusterLO = uint16(cluster)
}

// IsDirectory reports whether the entry describes a subdirectory.
func (h *EntryHeader) IsDirectory() bool { return h.Attribute&AttrDirectory != 0 }

// IsVolumeLabel reports whether the entry is the volume label pseudo-entry.
func (h *EntryHeader) IsVolumeLabel() bool { return h.Attribute&AttrVolumeLabel != 0 }

// ShortNameString formats the stored 11 bytes as NAME.EXT.
func (h *EntryHeader) ShortNameString() string {
	name := strings.TrimRight(string(h.Name[:8]), " ")
	ext := strings.TrimRight(string(h.Name[8:11]), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// DisplayName returns the long name when present, the short name otherwise.
func (h *ExtendedEntryHeader) DisplayName() string {
	if h.ExtendedName != "" {
		return h.ExtendedName
	}
	return h.ShortNameString()
}

// shortNameChecksum computes the rolling checksum stored in every long-name
// fragment, over the 11 raw short name bytes.
func shortNameChecksum(name [11]byte) byte {
	var sum byte
	for _, c := range name {
		sum = (sum&1)<<7 + sum>>1 + c
	}
	return sum
}

// decodeDirEntries scans raw directory bytes slot by slot. Fragment slots
// accumulate until their short entry arrives; a checksum mismatch discards
// the accumulated fragments and the entry keeps only its short name. A slot
// starting with 0x00 ends the scan, a deleted slot is skipped.
func decodeDirEntries(raw []byte) ([]ExtendedEntryHeader, error) {
	var entries []ExtendedEntryHeader

	// Pending long-name state.
	var fragments []LongFilenameEntry
	fragStart := -1

	for i := 0; i+sizeDirEntry <= len(raw); i += sizeDirEntry {
		slot := raw[i : i+sizeDirEntry]
		switch slot[0] {
		case slotEndOfDir:
			return entries, nil
		case slotDeleted:
			fragments, fragStart = nil, -1
			continue
		}

		if slot[11]&attrLongNameMask == attrLongName {
			var lfn LongFilenameEntry
			if err := binary.Read(bytes.NewReader(slot), binary.LittleEndian, &lfn); err != nil {
				return nil, checkpoint.From(err)
			}
			if lfn.Sequence&lastLongEntryFlag != 0 {
				fragments = fragments[:0]
				fragStart = i / sizeDirEntry
			}
			fragments = append(fragments, lfn)
			continue
		}

		var hdr EntryHeader
		if err := binary.Read(bytes.NewReader(slot), binary.LittleEndian, &hdr); err != nil {
			return nil, checkpoint.From(err)
		}
		ext := ExtendedEntryHeader{
			EntryHeader: hdr,
			slotStart:   i / sizeDirEntry,
			slotCount:   1,
		}
		if len(fragments) > 0 {
			if name, ok := assembleLongName(fragments, hdr.Name); ok {
				ext.ExtendedName = name
				ext.slotStart = fragStart
				ext.slotCount = len(fragments) + 1
			}
			// On checksum or sequence mismatch the fragments are
			// orphaned: ignore them, keep the short name only.
		}
		fragments, fragStart = nil, -1
		entries = append(entries, ext)
	}
	return entries, nil
}

// assembleLongName joins fragments (stored in descending sequence order)
// into the long name, validating sequence numbers and checksums against the
// short name.
func assembleLongName(fragments []LongFilenameEntry, shortName [11]byte) (string, bool) {
	sum := shortNameChecksum(shortName)
	n := len(fragments)
	if fragments[0].Sequence&lastLongEntryFlag == 0 {
		return "", false
	}
	// Collect the UTF-16LE bytes in ascending logical order, which is the
	// reverse of the stored order.
	raw := make([]byte, 0, n*charsPerLongSlot*2)
	for i := n - 1; i >= 0; i-- {
		f := fragments[i]
		if f.Checksum != sum {
			return "", false
		}
		wantSeq := byte(n - i)
		seq := f.Sequence &^ lastLongEntryFlag
		if seq != wantSeq {
			return "", false
		}
		units := make([]uint16, 0, charsPerLongSlot)
		units = append(units, f.First[:]...)
		units = append(units, f.Second[:]...)
		units = append(units, f.Third[:]...)
		for _, u := range units {
			raw = binary.LittleEndian.AppendUint16(raw, u)
		}
	}
	// Trim the terminator and padding.
	for i := 0; i+1 < len(raw); i += 2 {
		u := binary.LittleEndian.Uint16(raw[i:])
		if u == 0x0000 || u == 0xFFFF {
			raw = raw[:i]
			break
		}
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// encodeEntrySlots renders the entry into its on-disk slot run: the minimal
// long-name fragment sequence (when ExtendedName is set) followed by the
// short-name slot.
func encodeEntrySlots(ext *ExtendedEntryHeader) ([]byte, error) {
	var out bytes.Buffer

	if ext.ExtendedName != "" {
		raw, err := utf16le.NewEncoder().Bytes([]byte(ext.ExtendedName))
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrInvalidName)
		}
		units := len(raw) / 2
		if units > maxLongNameLength {
			return nil, checkpoint.From(ErrNameTooLong)
		}
		slots := (units + charsPerLongSlot - 1) / charsPerLongSlot

		// Pad to whole fragments: one terminator, then 0xFFFF filler.
		padded := make([]uint16, slots*charsPerLongSlot)
		for i := range padded {
			switch {
			case i < units:
				padded[i] = binary.LittleEndian.Uint16(raw[i*2:])
			case i == units:
				padded[i] = 0x0000
			default:
				padded[i] = 0xFFFF
			}
		}

		sum := shortNameChecksum(ext.Name)
		for seq := slots; seq >= 1; seq-- {
			lfn := LongFilenameEntry{
				Sequence:  byte(seq),
				Attribute: attrLongName,
				Checksum:  sum,
			}
			if seq == slots {
				lfn.Sequence |= lastLongEntryFlag
			}
			part := padded[(seq-1)*charsPerLongSlot:]
			copy(lfn.First[:], part[0:5])
			copy(lfn.Second[:], part[5:11])
			copy(lfn.Third[:], part[11:13])
			if err := binary.Write(&out, binary.LittleEndian, lfn); err != nil {
				return nil, checkpoint.From(err)
			}
		}
	}

	if err := binary.Write(&out, binary.LittleEndian, ext.EntryHeader); err != nil {
		return nil, checkpoint.From(err)
	}
	return out.Bytes(), nil
}

// slotsNeeded returns the number of directory slots the entry occupies once
// encoded.
func slotsNeeded(name string) int {
	if name == "" {
		return 1
	}
	units := 0
	for _, r := range name {
		units++
		if r > 0xFFFF {
			units++ // surrogate pair
		}
	}
	return (units+charsPerLongSlot-1)/charsPerLongSlot + 1
}

// validateLongName rejects names the on-disk format cannot store.
func validateLongName(name string) error {
	if name == "" || name == "." || name == ".." {
		return checkpoint.From(ErrInvalidName)
	}
	if len([]rune(name)) > maxLongNameLength {
		return checkpoint.From(ErrNameTooLong)
	}
	if strings.ContainsAny(name, `\/:*?"<>|`) {
		return checkpoint.From(ErrInvalidName)
	}
	for _, r := range name {
		if r < 0x20 {
			return checkpoint.From(ErrInvalidName)
		}
	}
	return nil
}

// fitsShortName reports whether name can be stored directly as an 8.3 name
// without a long-name sequence.
func fitsShortName(name string) bool {
	base, ext := splitBaseExt(name)
	if len(base) > 8 || len(ext) > 3 || base == "" {
		return false
	}
	for i := 0; i < len(base); i++ {
		if !validShortNameChars.Contains(base[i]) {
			return false
		}
	}
	for i := 0; i < len(ext); i++ {
		if !validShortNameChars.Contains(ext[i]) {
			return false
		}
	}
	return true
}

func splitBaseExt(name string) (base, ext string) {
	lastDot := strings.LastIndex(name, ".")
	if lastDot <= 0 {
		return name, ""
	}
	return name[:lastDot], name[lastDot+1:]
}

// sanitizeShortPart uppercases s and keeps only bytes valid in a stored 8.3
// name, substituting '_' for the rest. Spaces and dots are dropped.
func sanitizeShortPart(s string) (string, bool) {
	lossy := false
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r == ' ' || r == '.':
			lossy = true
		case r < 0x80 && validShortNameChars.Contains(byte(r)):
			b.WriteByte(byte(r))
		default:
			lossy = true
			b.WriteByte('_')
		}
	}
	return b.String(), lossy
}

// packShortName stores base and ext space-padded into the 11 name bytes.
func packShortName(base, ext string) [11]byte {
	var name [11]byte
	copy(name[:], "           ")
	copy(name[:8], base)
	copy(name[8:11], ext)
	// 0xE5 is a valid leading byte for a name but collides with the
	// deleted marker, so it is stored as 0x05.
	if name[0] == slotDeleted {
		name[0] = 0x05
	}
	return name
}

// deriveShortName builds a unique 8.3 alias for a long name. taken reports
// whether a candidate name already exists among the siblings. Collisions are
// resolved with a ~N numeric tail; the search is bounded and fails with
// ErrNameTooLong when exhausted.
func deriveShortName(longName string, taken func([11]byte) bool) ([11]byte, error) {
	rawBase, rawExt := splitBaseExt(longName)
	base, lossyBase := sanitizeShortPart(rawBase)
	ext, lossyExt := sanitizeShortPart(rawExt)
	lossy := lossyBase || lossyExt || len(base) > 8 || len(ext) > 3

	if len(ext) > 3 {
		ext = ext[:3]
	}
	if base == "" {
		return [11]byte{}, checkpoint.From(ErrInvalidName)
	}

	if !lossy {
		name := packShortName(base, ext)
		if !taken(name) {
			return name, nil
		}
	}

	// Truncate to 6 characters plus ~N, growing the digits as needed.
	for n := 1; n <= maxShortNameAttempts; n++ {
		tail := "~" + strconv.Itoa(n)
		keep := 8 - len(tail)
		if keep > 6 {
			keep = 6
		}
		if keep > len(base) {
			keep = len(base)
		}
		name := packShortName(base[:keep]+tail, ext)
		if !taken(name) {
			return name, nil
		}
	}
	return [11]byte{}, checkpoint.From(ErrNameTooLong)
}

// findFreeSlotRun locates count contiguous reusable slots (deleted or in the
// unused tail) in raw directory bytes and returns the index of the first
// slot. ok is false when the directory has no such run, in which case the
// caller extends the chain and retries.
func findFreeSlotRun(raw []byte, count int) (int, bool) {
	run := 0
	start := 0
	for i := 0; i+sizeDirEntry <= len(raw); i += sizeDirEntry {
		first := raw[i]
		if first == slotDeleted || first == slotEndOfDir {
			if run == 0 {
				start = i / sizeDirEntry
			}
			run++
			if run == count {
				return start, true
			}
			continue
		}
		run = 0
	}
	return 0, false
}
