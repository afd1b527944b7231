package fat32

import (
	"io"

	"github.com/aligator/checkpoint"
)

// BlockDevice is the raw-storage boundary of the engine. The volume is a flat
// array of fixed-size sectors addressed by logical block address; the engine
// never assumes memory-mapped access.
//
// Both methods must transfer exactly one sector. dst and src are always
// SectorSize() bytes long. Implementations do not need to be safe for
// concurrent use; the engine serializes access to shared structures itself.
type BlockDevice interface {
	ReadSector(lba uint32, dst []byte) error
	WriteSector(lba uint32, src []byte) error
	SectorSize() int
	SectorCount() uint32
}

// SeekerDevice adapts an io.ReadSeeker to the BlockDevice interface. If the
// reader also implements io.Writer the device is writable, otherwise every
// WriteSector fails with ErrReadOnly.
type SeekerDevice struct {
	rs         io.ReadSeeker
	w          io.Writer
	sectorSize int
	sectors    uint32
}

// NewSeekerDevice wraps an io.ReadSeeker as a read-only BlockDevice with the
// given sector size. The sector count is derived from the stream length.
func NewSeekerDevice(rs io.ReadSeeker, sectorSize int) (*SeekerDevice, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrDeviceIO)
	}
	dev := &SeekerDevice{
		rs:         rs,
		sectorSize: sectorSize,
		sectors:    uint32(size / int64(sectorSize)),
	}
	if w, ok := rs.(io.Writer); ok {
		dev.w = w
	}
	return dev, nil
}

func (d *SeekerDevice) ReadSector(lba uint32, dst []byte) error {
	if lba >= d.sectors {
		return checkpoint.From(ErrDeviceIO)
	}
	if _, err := d.rs.Seek(int64(lba)*int64(d.sectorSize), io.SeekStart); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	if _, err := io.ReadFull(d.rs, dst[:d.sectorSize]); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	return nil
}

func (d *SeekerDevice) WriteSector(lba uint32, src []byte) error {
	if d.w == nil {
		return checkpoint.From(ErrReadOnly)
	}
	if lba >= d.sectors {
		return checkpoint.From(ErrDeviceIO)
	}
	if _, err := d.rs.Seek(int64(lba)*int64(d.sectorSize), io.SeekStart); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	if _, err := d.w.Write(src[:d.sectorSize]); err != nil {
		return checkpoint.Wrap(err, ErrDeviceIO)
	}
	return nil
}

func (d *SeekerDevice) SectorSize() int     { return d.sectorSize }
func (d *SeekerDevice) SectorCount() uint32 { return d.sectors }

// Writable reports whether the underlying stream accepts writes.
func (d *SeekerDevice) Writable() bool { return d.w != nil }

// MemDevice is a BlockDevice backed by a byte slice. It is used by Format to
// build fresh images and by tests that need a scratch volume.
type MemDevice struct {
	buf        []byte
	sectorSize int
}

// NewMemDevice allocates a zeroed in-memory device.
func NewMemDevice(sectorSize int, sectors uint32) *MemDevice {
	return &MemDevice{
		buf:        make([]byte, int(sectors)*sectorSize),
		sectorSize: sectorSize,
	}
}

func (d *MemDevice) ReadSector(lba uint32, dst []byte) error {
	off := int(lba) * d.sectorSize
	if off+d.sectorSize > len(d.buf) {
		return checkpoint.From(ErrDeviceIO)
	}
	copy(dst[:d.sectorSize], d.buf[off:])
	return nil
}

func (d *MemDevice) WriteSector(lba uint32, src []byte) error {
	off := int(lba) * d.sectorSize
	if off+d.sectorSize > len(d.buf) {
		return checkpoint.From(ErrDeviceIO)
	}
	copy(d.buf[off:off+d.sectorSize], src[:d.sectorSize])
	return nil
}

func (d *MemDevice) SectorSize() int     { return d.sectorSize }
func (d *MemDevice) SectorCount() uint32 { return uint32(len(d.buf) / d.sectorSize) }

// Bytes exposes the backing buffer, mainly so tests can inspect raw sectors.
func (d *MemDevice) Bytes() []byte { return d.buf }
