package fat32

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// sliceStream is a minimal read-write io.ReadSeeker over a byte slice.
type sliceStream struct {
	buf []byte
	pos int64
}

func (s *sliceStream) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *sliceStream) Write(p []byte) (int, error) {
	n := copy(s.buf[s.pos:], p)
	s.pos += int64(n)
	return n, nil
}

func (s *sliceStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.buf)) + offset
	}
	return s.pos, nil
}

func TestSeekerDevice(t *testing.T) {
	backing := make([]byte, 4*512)
	for i := range backing {
		backing[i] = byte(i / 512)
	}

	dev, err := NewSeekerDevice(&sliceStream{buf: backing}, 512)
	if err != nil {
		t.Fatalf("NewSeekerDevice() error = %v", err)
	}
	if dev.SectorCount() != 4 {
		t.Errorf("SectorCount() = %v, want 4", dev.SectorCount())
	}
	if dev.SectorSize() != 512 {
		t.Errorf("SectorSize() = %v, want 512", dev.SectorSize())
	}
	if !dev.Writable() {
		t.Error("Writable() = false for a read-write stream")
	}

	sector := make([]byte, 512)
	if err := dev.ReadSector(2, sector); err != nil {
		t.Fatalf("ReadSector() error = %v", err)
	}
	if sector[0] != 2 || sector[511] != 2 {
		t.Errorf("ReadSector(2) returned wrong content: %v ... %v", sector[0], sector[511])
	}

	fill := bytes.Repeat([]byte{0xEE}, 512)
	if err := dev.WriteSector(1, fill); err != nil {
		t.Fatalf("WriteSector() error = %v", err)
	}
	if err := dev.ReadSector(1, sector); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sector, fill) {
		t.Error("WriteSector() content did not round trip")
	}

	if err := dev.ReadSector(4, sector); !errors.Is(err, ErrDeviceIO) {
		t.Errorf("ReadSector(out of range) error = %v, want ErrDeviceIO", err)
	}
	if err := dev.WriteSector(4, fill); !errors.Is(err, ErrDeviceIO) {
		t.Errorf("WriteSector(out of range) error = %v, want ErrDeviceIO", err)
	}
}

func TestSeekerDevice_ReadOnly(t *testing.T) {
	dev, err := NewSeekerDevice(bytes.NewReader(make([]byte, 2*512)), 512)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Writable() {
		t.Error("Writable() = true for a bytes.Reader")
	}
	if err := dev.WriteSector(0, make([]byte, 512)); !errors.Is(err, ErrReadOnly) {
		t.Errorf("WriteSector() error = %v, want ErrReadOnly", err)
	}
}

func TestMemDevice(t *testing.T) {
	dev := NewMemDevice(512, 8)
	if dev.SectorCount() != 8 {
		t.Errorf("SectorCount() = %v, want 8", dev.SectorCount())
	}

	src := bytes.Repeat([]byte{0x5A}, 512)
	if err := dev.WriteSector(7, src); err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 512)
	if err := dev.ReadSector(7, dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("sector content did not round trip")
	}

	if err := dev.ReadSector(8, dst); !errors.Is(err, ErrDeviceIO) {
		t.Errorf("ReadSector(out of range) error = %v, want ErrDeviceIO", err)
	}
	if err := dev.WriteSector(8, src); !errors.Is(err, ErrDeviceIO) {
		t.Errorf("WriteSector(out of range) error = %v, want ErrDeviceIO", err)
	}
}
