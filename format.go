package fat32

import (
	"encoding/binary"
	"time"

	"github.com/aligator/checkpoint"
)

// FormatConfig controls volume creation. Zero values pick defaults.
type FormatConfig struct {
	// Label is the volume label, stamped into both the boot sector and a
	// root directory entry. At most 11 bytes.
	Label string
	// SectorsPerCluster overrides the size-based default. Must be a power
	// of two no greater than 64.
	SectorsPerCluster uint8
	// VolumeID overrides the generated serial number.
	VolumeID uint32
}

// defaultSectorsPerCluster follows the conventional size table for volumes
// with 512-byte sectors, scaled down for larger sector sizes.
func defaultSectorsPerCluster(totalSectors uint32, sectorSize int) uint8 {
	total := uint64(totalSectors) * uint64(sectorSize) / 512
	switch {
	case total <= 532_480: // up to 260 MiB
		return 1
	case total <= 16_777_216: // up to 8 GiB
		return 8
	case total <= 33_554_432: // up to 16 GiB
		return 16
	case total <= 67_108_864: // up to 32 GiB
		return 32
	default:
		return 64
	}
}

// Format writes a fresh FAT32 layout onto dev: boot sector with backup,
// FSInfo sector, two mirrored FAT copies and an empty root directory. Any
// previous content inside those regions is overwritten.
func Format(dev BlockDevice, cfg FormatConfig) error {
	sectorSize := dev.SectorSize()
	totalSectors := dev.SectorCount()

	spc := cfg.SectorsPerCluster
	if spc == 0 {
		spc = defaultSectorsPerCluster(totalSectors, sectorSize)
	}
	if !isPowerOfTwo(uint32(spc)) || spc > maxSectorsPerCluster {
		return checkpoint.From(ErrCorruptBootSector)
	}
	if len(cfg.Label) > 11 {
		return checkpoint.From(ErrInvalidName)
	}

	const (
		reservedSectors = 32
		numFATs         = 2
		rootCluster     = 2
		fsInfoSector    = 1
		backupBoot      = 6
	)

	fatSize, err := fatSizeSectors(totalSectors, sectorSize, spc, reservedSectors, numFATs)
	if err != nil {
		return err
	}

	volumeID := cfg.VolumeID
	if volumeID == 0 {
		now := time.Now()
		volumeID = uint32(now.Unix()) ^ uint32(now.Nanosecond())
	}

	vp := VolumeParameters{
		BytesPerSector:    uint16(sectorSize),
		SectorsPerCluster: spc,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		SectorsPerFAT:     fatSize,
		RootCluster:       rootCluster,
		TotalSectors:      totalSectors,
		Media:             0xF8,
		Label:             cfg.Label,
		FSInfoSector:      fsInfoSector,
		BackupBootSector:  backupBoot,
		VolumeID:          volumeID,
	}
	boot := vp.EncodeBootSector()

	// Parsing the rendered sector both validates the chosen geometry and
	// fills in the derived fields used below.
	vp, err = ParseBootSector(boot)
	if err != nil {
		return err
	}

	if err := dev.WriteSector(0, boot); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	if err := dev.WriteSector(backupBoot, boot); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	fsi := encodeFSInfoSector(sectorSize, vp.MaxCluster-2, rootCluster)
	if err := dev.WriteSector(fsInfoSector, fsi); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	if err := dev.WriteSector(backupBoot+fsInfoSector, fsi); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}

	// First FAT sector carries the media descriptor entry, the reserved
	// entry 1 and the root directory's end-of-chain mark. Everything else
	// in both copies is zero.
	head := make([]byte, sectorSize)
	binary.LittleEndian.PutUint32(head[0:], 0x0FFFFF00|uint32(vp.Media))
	binary.LittleEndian.PutUint32(head[4:], entryEOC)
	binary.LittleEndian.PutUint32(head[8:], entryEOC)
	zero := make([]byte, sectorSize)
	for copyIdx := 0; copyIdx < numFATs; copyIdx++ {
		base := vp.FATStartSector + uint32(copyIdx)*fatSize
		if err := dev.WriteSector(base, head); err != nil {
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
		for s := uint32(1); s < fatSize; s++ {
			if err := dev.WriteSector(base+s, zero); err != nil {
				return checkpoint.Wrap(err, ErrDeviceIO)
			}
		}
	}

	rootStart := vp.clusterStartSector(rootCluster)
	for s := uint32(0); s < uint32(spc); s++ {
		if err := dev.WriteSector(rootStart+s, zero); err != nil {
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
	}

	if cfg.Label != "" {
		label := ExtendedEntryHeader{}
		label.Attribute = AttrVolumeLabel
		copy(label.Name[:], "           ")
		copy(label.Name[:], cfg.Label)
		now := time.Now()
		label.WriteDate = EncodeDate(now)
		label.WriteTime = EncodeTime(now)
		data, err := encodeEntrySlots(&label)
		if err != nil {
			return err
		}
		sector := make([]byte, sectorSize)
		copy(sector, data)
		if err := dev.WriteSector(rootStart, sector); err != nil {
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
	}
	return nil
}

// fatSizeSectors sizes one FAT copy so every data cluster has an entry. The
// estimate starts pessimistic and settles within a few rounds.
func fatSizeSectors(totalSectors uint32, sectorSize int, spc uint8, reserved, numFATs uint32) (uint32, error) {
	entriesPerSector := uint32(sectorSize) / 4
	fatSize := uint32(1)
	for i := 0; i < 16; i++ {
		dataStart := reserved + numFATs*fatSize
		if dataStart >= totalSectors {
			return 0, checkpoint.From(ErrCorruptBootSector)
		}
		clusters := (totalSectors - dataStart) / uint32(spc)
		if clusters == 0 {
			return 0, checkpoint.From(ErrCorruptBootSector)
		}
		need := (clusters + 2 + entriesPerSector - 1) / entriesPerSector
		if need == fatSize {
			return fatSize, nil
		}
		fatSize = need
	}
	return fatSize, nil
}
