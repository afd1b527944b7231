// Structs in this file match the on-disk layout of the FAT32 boot sector.
// They are read and written with encoding/binary using little-endian order,
// so field order and sizes are not negotiable.

package fat32

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/aligator/checkpoint"
)

// BPB is the BIOS Parameter Block shared by all FAT variants, located at the
// start of sector 0.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
}

// FAT32SpecificData immediately follows the BPB on FAT32 volumes.
type FAT32SpecificData struct {
	FATSize          uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

const (
	// sizeDirEntry is the size of one directory slot in bytes.
	sizeDirEntry = 32

	// maxSectorsPerCluster bounds the cluster size.
	maxSectorsPerCluster = 64

	bootSignatureOffset = 510
)

// VolumeParameters describes the geometry of a mounted volume. It is built
// once from the boot sector and immutable afterwards.
type VolumeParameters struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	SectorsPerFAT     uint32
	RootCluster       uint32
	TotalSectors      uint32
	Media             byte
	Label             string
	ExtFlags          uint16
	FSInfoSector      uint16
	BackupBootSector  uint16
	VolumeID          uint32

	// Derived values.
	FATStartSector  uint32
	DataStartSector uint32
	// MaxCluster is the highest valid cluster number. Valid clusters are in
	// [2, MaxCluster].
	MaxCluster      uint32
	BytesPerCluster uint32
}

// ActiveFAT returns the index of the only FAT copy in use when mirroring is
// disabled, or -1 when all copies are mirrored.
func (vp *VolumeParameters) ActiveFAT() int {
	if vp.ExtFlags&0x0080 != 0 {
		return int(vp.ExtFlags & 0x000F)
	}
	return -1
}

// fatSectorFor returns the sector of the given FAT copy holding the entry of
// cluster, plus the byte offset of the entry inside that sector.
func (vp *VolumeParameters) fatSectorFor(copyIdx int, cluster uint32) (lba uint32, offset uint32) {
	byteOff := cluster * 4
	lba = vp.FATStartSector + uint32(copyIdx)*vp.SectorsPerFAT + byteOff/uint32(vp.BytesPerSector)
	return lba, byteOff % uint32(vp.BytesPerSector)
}

// clusterStartSector returns the first sector of a cluster's data.
func (vp *VolumeParameters) clusterStartSector(cluster uint32) uint32 {
	return vp.DataStartSector + (cluster-2)*uint32(vp.SectorsPerCluster)
}

func isPowerOfTwo(v uint32) bool { return v != 0 && v&(v-1) == 0 }

// ParseBootSector validates the first sector of a volume and derives the
// volume geometry from it. The parse is pure; it performs no device access.
func ParseBootSector(sector []byte) (VolumeParameters, error) {
	var vp VolumeParameters
	if len(sector) < bootSignatureOffset+2 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	if sector[bootSignatureOffset] != 0x55 || sector[bootSignatureOffset+1] != 0xAA {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}

	var bpb BPB
	var ext FAT32SpecificData
	r := bytes.NewReader(sector)
	if err := binary.Read(r, binary.LittleEndian, &bpb); err != nil {
		return vp, checkpoint.Wrap(err, ErrCorruptBootSector)
	}
	if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
		return vp, checkpoint.Wrap(err, ErrCorruptBootSector)
	}

	// Valid x86 jump instructions are the usual first sanity check.
	if !(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) && bpb.BSJumpBoot[0] != 0xE9 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}

	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	if !isPowerOfTwo(uint32(bpb.SectorsPerCluster)) || bpb.SectorsPerCluster > maxSectorsPerCluster {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	if bpb.ReservedSectorCount == 0 || bpb.NumFATs == 0 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	// FAT32 stores its sector counts exclusively in the 32-bit fields.
	if bpb.RootEntryCount != 0 || bpb.FATSize16 != 0 || ext.FATSize == 0 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	totalSectors := bpb.TotalSectors32
	if totalSectors == 0 {
		totalSectors = uint32(bpb.TotalSectors16)
	}
	if totalSectors == 0 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	if ext.FSVersion != 0 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	if ext.RootCluster < 2 {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}
	// With mirroring disabled the active copy index must address an
	// existing FAT, or every table access lands outside the FAT region.
	if ext.ExtFlags&0x0080 != 0 && ext.ExtFlags&0x000F >= uint16(bpb.NumFATs) {
		return vp, checkpoint.From(ErrCorruptBootSector)
	}

	vp = VolumeParameters{
		BytesPerSector:    bpb.BytesPerSector,
		SectorsPerCluster: bpb.SectorsPerCluster,
		ReservedSectors:   bpb.ReservedSectorCount,
		NumFATs:           bpb.NumFATs,
		SectorsPerFAT:     ext.FATSize,
		RootCluster:       ext.RootCluster,
		TotalSectors:      totalSectors,
		Media:             bpb.Media,
		Label:             strings.TrimRight(string(ext.BSVolumeLabel[:]), " "),
		ExtFlags:          ext.ExtFlags,
		FSInfoSector:      ext.FSInfo,
		BackupBootSector:  ext.BkBootSector,
		VolumeID:          ext.BSVolumeID,
	}
	vp.FATStartSector = uint32(vp.ReservedSectors)
	vp.DataStartSector = vp.FATStartSector + uint32(vp.NumFATs)*vp.SectorsPerFAT
	if vp.DataStartSector >= totalSectors {
		return VolumeParameters{}, checkpoint.From(ErrCorruptBootSector)
	}
	dataClusters := (totalSectors - vp.DataStartSector) / uint32(vp.SectorsPerCluster)
	if dataClusters == 0 {
		return VolumeParameters{}, checkpoint.From(ErrCorruptBootSector)
	}
	vp.MaxCluster = dataClusters + 1
	vp.BytesPerCluster = uint32(vp.BytesPerSector) * uint32(vp.SectorsPerCluster)
	if vp.RootCluster > vp.MaxCluster {
		return VolumeParameters{}, checkpoint.From(ErrCorruptBootSector)
	}
	return vp, nil
}

// EncodeBootSector renders the parameters back into a full boot sector. A
// parse of the result yields identical parameters, which Format relies on
// when stamping new volumes.
func (vp *VolumeParameters) EncodeBootSector() []byte {
	sector := make([]byte, vp.BytesPerSector)

	label := vp.Label
	if label == "" {
		label = "NO NAME"
	}
	var rawLabel [11]byte
	copy(rawLabel[:], "           ")
	copy(rawLabel[:], label)

	bpb := BPB{
		BSJumpBoot:          [3]byte{0xEB, 0x58, 0x90},
		BytesPerSector:      vp.BytesPerSector,
		SectorsPerCluster:   vp.SectorsPerCluster,
		ReservedSectorCount: vp.ReservedSectors,
		NumFATs:             vp.NumFATs,
		TotalSectors32:      vp.TotalSectors,
		Media:               vp.Media,
		SectorsPerTrack:     32,
		NumberOfHeads:       64,
	}
	copy(bpb.BSOEMName[:], "MSWIN4.1")
	ext := FAT32SpecificData{
		FATSize:         vp.SectorsPerFAT,
		ExtFlags:        vp.ExtFlags,
		RootCluster:     vp.RootCluster,
		FSInfo:          vp.FSInfoSector,
		BkBootSector:    vp.BackupBootSector,
		BSDriveNumber:   0x80,
		BSBootSignature: 0x29,
		BSVolumeID:      vp.VolumeID,
		BSVolumeLabel:   rawLabel,
	}
	copy(ext.BSFileSystemType[:], "FAT32   ")

	buf := bytes.NewBuffer(sector[:0])
	// Writing fixed-layout structs into a preallocated buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, bpb)
	_ = binary.Write(buf, binary.LittleEndian, ext)
	sector[bootSignatureOffset] = 0x55
	sector[bootSignatureOffset+1] = 0xAA
	return sector
}
