package fat32

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	dev := NewMemDevice(512, 20480)
	if err := Format(dev, FormatConfig{Label: "FRESH"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	fs, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount() after Format error = %v", err)
	}

	if fs.params.NumFATs != 2 {
		t.Errorf("NumFATs = %v, want 2", fs.params.NumFATs)
	}
	if fs.params.RootCluster != 2 {
		t.Errorf("RootCluster = %v, want 2", fs.params.RootCluster)
	}
	if got := fs.Label(); got != "FRESH" {
		t.Errorf("Label() = %q, want FRESH", got)
	}
	// Everything but the root cluster starts out free.
	if want := fs.params.MaxCluster - 2; fs.FreeClusters() != want {
		t.Errorf("FreeClusters() = %v, want %v", fs.FreeClusters(), want)
	}

	info, err := fs.readFSInfo()
	if err != nil {
		t.Fatalf("readFSInfo() error = %v", err)
	}
	if info.freeCount != fs.FreeClusters() {
		t.Errorf("FSInfo free count = %v, want %v", info.freeCount, fs.FreeClusters())
	}

	infos, err := fs.ReadDir("/")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("fresh root has %v visible entries, want 0", len(infos))
	}
}

func TestFormat_BackupBootSector(t *testing.T) {
	dev := NewMemDevice(512, 20480)
	if err := Format(dev, FormatConfig{}); err != nil {
		t.Fatal(err)
	}

	primary := make([]byte, 512)
	backup := make([]byte, 512)
	if err := dev.ReadSector(0, primary); err != nil {
		t.Fatal(err)
	}
	if err := dev.ReadSector(6, backup); err != nil {
		t.Fatal(err)
	}
	for i := range primary {
		if primary[i] != backup[i] {
			t.Fatalf("backup boot sector differs from primary at byte %v", i)
		}
	}
}

func TestFormat_MirroredFATs(t *testing.T) {
	dev := NewMemDevice(512, 20480)
	if err := Format(dev, FormatConfig{}); err != nil {
		t.Fatal(err)
	}
	fs, err := Mount(dev)
	if err != nil {
		t.Fatal(err)
	}

	a := make([]byte, 512)
	b := make([]byte, 512)
	for s := uint32(0); s < fs.params.SectorsPerFAT; s++ {
		if err := dev.ReadSector(fs.params.FATStartSector+s, a); err != nil {
			t.Fatal(err)
		}
		if err := dev.ReadSector(fs.params.FATStartSector+fs.params.SectorsPerFAT+s, b); err != nil {
			t.Fatal(err)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("FAT copies differ in sector %v at byte %v", s, i)
			}
		}
	}
}

func TestFormat_Config(t *testing.T) {
	tests := []struct {
		name    string
		sectors uint32
		cfg     FormatConfig
		wantErr error
		wantSPC uint8
	}{
		{
			name:    "default cluster size small volume",
			sectors: 20480,
			wantSPC: 1,
		},
		{
			name:    "explicit cluster size",
			sectors: 20480,
			cfg:     FormatConfig{SectorsPerCluster: 8},
			wantSPC: 8,
		},
		{
			name:    "cluster size not a power of two",
			sectors: 20480,
			cfg:     FormatConfig{SectorsPerCluster: 3},
			wantErr: ErrCorruptBootSector,
		},
		{
			name:    "label too long",
			sectors: 20480,
			cfg:     FormatConfig{Label: "WAYTOOLONGLABEL"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "volume too small",
			sectors: 33,
			wantErr: ErrCorruptBootSector,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewMemDevice(512, tt.sectors)
			err := Format(dev, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Format() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			fs, err := Mount(dev)
			if err != nil {
				t.Fatal(err)
			}
			if fs.params.SectorsPerCluster != tt.wantSPC {
				t.Errorf("SectorsPerCluster = %v, want %v", fs.params.SectorsPerCluster, tt.wantSPC)
			}
		})
	}
}
