package fat32

import (
	"encoding/binary"

	"github.com/aligator/checkpoint"
)

// FSInfo sector layout. Both counters may legitimately hold 0xFFFFFFFF,
// meaning "unknown"; the free count is advisory either way and never
// trusted over the table itself.
const (
	fsInfoLeadSignature   = 0x41615252
	fsInfoStructSignature = 0x61417272
	fsInfoTrailSignature  = 0xAA550000

	fsInfoStructOffset = 484
	fsInfoFreeOffset   = 488
	fsInfoNextOffset   = 492
	fsInfoTrailOffset  = 508

	fsInfoUnknown = 0xFFFFFFFF
)

type fsInfo struct {
	freeCount uint32
	nextFree  uint32
}

// readFSInfo parses the FSInfo sector. A missing or unsigned sector is an
// error; the caller treats it as "no hint".
func (fs *FS) readFSInfo() (fsInfo, error) {
	var info fsInfo
	if fs.params.FSInfoSector == 0 {
		return info, checkpoint.From(ErrCorruptBootSector)
	}
	sector := make([]byte, fs.dev.SectorSize())
	if err := fs.dev.ReadSector(uint32(fs.params.FSInfoSector), sector); err != nil {
		return info, checkpoint.Wrap(err, ErrDeviceIO)
	}
	if binary.LittleEndian.Uint32(sector[0:4]) != fsInfoLeadSignature ||
		binary.LittleEndian.Uint32(sector[fsInfoStructOffset:]) != fsInfoStructSignature ||
		binary.LittleEndian.Uint32(sector[fsInfoTrailOffset:]) != fsInfoTrailSignature {
		return info, checkpoint.From(ErrCorruptBootSector)
	}
	info.freeCount = binary.LittleEndian.Uint32(sector[fsInfoFreeOffset:])
	info.nextFree = binary.LittleEndian.Uint32(sector[fsInfoNextOffset:])
	if info.nextFree == fsInfoUnknown {
		info.nextFree = 0
	}
	return info, nil
}

// writeFSInfo renders and writes the FSInfo sector, plus the backup copy
// when the volume carries one.
func (fs *FS) writeFSInfo(freeCount, nextFree uint32) error {
	if fs.params.FSInfoSector == 0 {
		return nil
	}
	sector := encodeFSInfoSector(fs.dev.SectorSize(), freeCount, nextFree)
	if err := fs.dev.WriteSector(uint32(fs.params.FSInfoSector), sector); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	if fs.params.BackupBootSector != 0 {
		backup := uint32(fs.params.BackupBootSector) + uint32(fs.params.FSInfoSector)
		if err := fs.dev.WriteSector(backup, sector); err != nil {
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
	}
	return nil
}

func encodeFSInfoSector(sectorSize int, freeCount, nextFree uint32) []byte {
	sector := make([]byte, sectorSize)
	binary.LittleEndian.PutUint32(sector[0:4], fsInfoLeadSignature)
	binary.LittleEndian.PutUint32(sector[fsInfoStructOffset:], fsInfoStructSignature)
	binary.LittleEndian.PutUint32(sector[fsInfoFreeOffset:], freeCount)
	binary.LittleEndian.PutUint32(sector[fsInfoNextOffset:], nextFree)
	binary.LittleEndian.PutUint32(sector[fsInfoTrailOffset:], fsInfoTrailSignature)
	return sector
}
