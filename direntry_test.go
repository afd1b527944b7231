package fat32

import (
	"errors"
	"strings"
	"testing"
)

func shortName(s string) [11]byte {
	var name [11]byte
	copy(name[:], "           ")
	copy(name[:], s)
	return name
}

func TestDirEntries_LongNameRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		longName  string
		shortName [11]byte
		wantSlots int
	}{
		{
			name:      "single fragment",
			longName:  "hello.txt",
			shortName: shortName("HELLO   TXT"),
			wantSlots: 2,
		},
		{
			name:      "exactly thirteen units",
			longName:  "exactly13.txt",
			shortName: shortName("EXACTL~1TXT"),
			wantSlots: 2,
		},
		{
			name:      "two fragments",
			longName:  "a longer file name.txt",
			shortName: shortName("ALONGE~1TXT"),
			wantSlots: 3,
		},
		{
			name:      "non ascii",
			longName:  "grüße.txt",
			shortName: shortName("GR__E~1 TXT"),
			wantSlots: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ExtendedEntryHeader{ExtendedName: tt.longName}
			in.Name = tt.shortName
			in.FileSize = 42

			raw, err := encodeEntrySlots(&in)
			if err != nil {
				t.Fatalf("encodeEntrySlots() error = %v", err)
			}
			if got := len(raw) / sizeDirEntry; got != tt.wantSlots {
				t.Errorf("encoded %v slots, want %v", got, tt.wantSlots)
			}
			if got := slotsNeeded(tt.longName); got != tt.wantSlots {
				t.Errorf("slotsNeeded() = %v, want %v", got, tt.wantSlots)
			}

			entries, err := decodeDirEntries(raw)
			if err != nil {
				t.Fatalf("decodeDirEntries() error = %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("decoded %v entries, want 1", len(entries))
			}
			got := entries[0]
			if got.ExtendedName != tt.longName {
				t.Errorf("ExtendedName = %q, want %q", got.ExtendedName, tt.longName)
			}
			if got.Name != tt.shortName {
				t.Errorf("Name = %q, want %q", got.Name, tt.shortName)
			}
			if got.slotStart != 0 || got.slotCount != tt.wantSlots {
				t.Errorf("slot run = (%v, %v), want (0, %v)", got.slotStart, got.slotCount, tt.wantSlots)
			}
			if got.FileSize != 42 {
				t.Errorf("FileSize = %v, want 42", got.FileSize)
			}
		})
	}
}

func TestDecodeDirEntries_ChecksumMismatchKeepsShortName(t *testing.T) {
	in := ExtendedEntryHeader{ExtendedName: "orphaned long name.txt"}
	in.Name = shortName("ORPHAN~1TXT")
	raw, err := encodeEntrySlots(&in)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the checksum byte of the first fragment.
	raw[13] ^= 0xFF

	entries, err := decodeDirEntries(raw)
	if err != nil {
		t.Fatalf("decodeDirEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("decoded %v entries, want 1", len(entries))
	}
	if entries[0].ExtendedName != "" {
		t.Errorf("ExtendedName = %q, want empty after checksum mismatch", entries[0].ExtendedName)
	}
	if got := entries[0].ShortNameString(); got != "ORPHAN~1.TXT" {
		t.Errorf("ShortNameString() = %q, want ORPHAN~1.TXT", got)
	}
	// The short slot alone is addressable for rewrites.
	if entries[0].slotCount != 1 {
		t.Errorf("slotCount = %v, want 1", entries[0].slotCount)
	}
}

func TestDecodeDirEntries_Markers(t *testing.T) {
	a := ExtendedEntryHeader{}
	a.Name = shortName("A       TXT")
	b := ExtendedEntryHeader{}
	b.Name = shortName("B       TXT")

	rawA, _ := encodeEntrySlots(&a)
	rawB, _ := encodeEntrySlots(&b)

	raw := make([]byte, 0, 4*sizeDirEntry)
	raw = append(raw, rawA...)
	deleted := append([]byte{}, rawB...)
	deleted[0] = slotDeleted
	raw = append(raw, deleted...)
	raw = append(raw, rawB...)
	raw = append(raw, make([]byte, sizeDirEntry)...) // end of directory

	entries, err := decodeDirEntries(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("decoded %v entries, want 2", len(entries))
	}
	if entries[0].ShortNameString() != "A.TXT" || entries[1].ShortNameString() != "B.TXT" {
		t.Errorf("decoded names = %q, %q", entries[0].ShortNameString(), entries[1].ShortNameString())
	}
	if entries[1].slotStart != 2 {
		t.Errorf("second entry slotStart = %v, want 2", entries[1].slotStart)
	}
}

func TestValidateLongName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple", input: "file.txt"},
		{name: "spaces", input: "My Documents"},
		{name: "empty", input: "", wantErr: ErrInvalidName},
		{name: "dot", input: ".", wantErr: ErrInvalidName},
		{name: "dotdot", input: "..", wantErr: ErrInvalidName},
		{name: "path separator", input: "a/b", wantErr: ErrInvalidName},
		{name: "wildcard", input: "a*b", wantErr: ErrInvalidName},
		{name: "control character", input: "a\tb", wantErr: ErrInvalidName},
		{name: "too long", input: strings.Repeat("x", 256), wantErr: ErrNameTooLong},
		{name: "max length", input: strings.Repeat("x", 255)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateLongName(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("validateLongName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestFitsShortName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "README.TXT", want: true},
		{input: "A", want: true},
		{input: "NAME1234.EXT", want: true},
		{input: "readme.txt", want: false}, // lowercase needs a long entry
		{input: "TOOLONGNAME.TXT", want: false},
		{input: "NAME.LONG", want: false},
		{input: "TWO.DOTS.TXT", want: false},
		{input: "WITH SPACE", want: false},
		{input: ".HIDDEN", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := fitsShortName(tt.input); got != tt.want {
				t.Errorf("fitsShortName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeriveShortName(t *testing.T) {
	tests := []struct {
		name     string
		longName string
		existing []string
		want     string
		wantErr  error
	}{
		{
			name:     "lowercase keeps plain alias",
			longName: "hello.txt",
			want:     "HELLO   TXT",
		},
		{
			name:     "long base truncated with tail",
			longName: "verylongfilename.txt",
			want:     "VERYLO~1TXT",
		},
		{
			name:     "spaces dropped",
			longName: "My File.txt",
			want:     "MYFILE~1TXT",
		},
		{
			name:     "collision bumps the tail",
			longName: "verylongfilename.txt",
			existing: []string{"VERYLO~1TXT"},
			want:     "VERYLO~2TXT",
		},
		{
			name:     "plain alias taken falls back to tail",
			longName: "hello.txt",
			existing: []string{"HELLO   TXT"},
			want:     "HELLO~1 TXT",
		},
		{
			name:     "long extension truncated",
			longName: "archive.tar.gz",
			want:     "ARCHIV~1GZ ",
		},
		{
			name:     "no usable characters",
			longName: "....",
			wantErr:  ErrInvalidName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := func(name [11]byte) bool {
				for _, e := range tt.existing {
					if name == shortName(e) {
						return true
					}
				}
				return false
			}
			got, err := deriveShortName(tt.longName, taken)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("deriveShortName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got != shortName(tt.want) {
				t.Errorf("deriveShortName(%q) = %q, want %q", tt.longName, got, tt.want)
			}
		})
	}
}

func TestShortNameChecksum_MatchesEncodedFragments(t *testing.T) {
	in := ExtendedEntryHeader{ExtendedName: "checksummed name.txt"}
	in.Name = shortName("CHECKS~1TXT")
	raw, err := encodeEntrySlots(&in)
	if err != nil {
		t.Fatal(err)
	}

	want := shortNameChecksum(in.Name)
	// Every fragment carries the checksum at byte 13 of its slot.
	slots := len(raw)/sizeDirEntry - 1
	for i := 0; i < slots; i++ {
		if got := raw[i*sizeDirEntry+13]; got != want {
			t.Errorf("fragment %v checksum = %#x, want %#x", i, got, want)
		}
	}
}

func TestFindFreeSlotRun(t *testing.T) {
	used := make([]byte, sizeDirEntry)
	used[0] = 'A'
	del := make([]byte, sizeDirEntry)
	del[0] = slotDeleted
	end := make([]byte, sizeDirEntry)

	build := func(slots ...[]byte) []byte {
		var raw []byte
		for _, s := range slots {
			raw = append(raw, s...)
		}
		return raw
	}

	tests := []struct {
		name      string
		raw       []byte
		count     int
		wantStart int
		wantOK    bool
	}{
		{
			name:      "single deleted slot",
			raw:       build(used, del, used, end),
			count:     1,
			wantStart: 1,
			wantOK:    true,
		},
		{
			name:      "run spans deleted and tail",
			raw:       build(used, del, end, end),
			count:     3,
			wantStart: 1,
			wantOK:    true,
		},
		{
			name:   "interrupted run",
			raw:    build(del, used, del, used),
			count:  2,
			wantOK: false,
		},
		{
			name:      "tail only",
			raw:       build(used, used, end, end),
			count:     2,
			wantStart: 2,
			wantOK:    true,
		},
		{
			name:   "directory full",
			raw:    build(used, used),
			count:  1,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, ok := findFreeSlotRun(tt.raw, tt.count)
			if ok != tt.wantOK {
				t.Fatalf("findFreeSlotRun() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && start != tt.wantStart {
				t.Errorf("findFreeSlotRun() start = %v, want %v", start, tt.wantStart)
			}
		})
	}
}
