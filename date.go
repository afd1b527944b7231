package fat32

import (
	"time"
)

// ParseDate reads a 16-bit FAT date stamp, relative to the MS-DOS epoch of
// 01/01/1980:
//
//	Bits 0-4:  day of month, valid range 1-31.
//	Bits 5-8:  month of year, 1 = January, valid range 1-12.
//	Bits 9-15: years since 1980, valid range 0-127 (1980-2107).
//
// The returned time always has a clock of 00:00:00 UTC.
//
// A day or month of 0 is invalid per the on-disk format, in which case the
// zero time.Time is returned so callers can use time.Time.IsZero().
func ParseDate(input uint16) time.Time {
	dayOfMonth := input & 0x1F
	monthOfYear := input & 0x1E0 >> 5
	yearSince1980 := input & 0xFE00 >> 9

	if dayOfMonth == 0 || monthOfYear == 0 {
		return time.Time{}
	}

	return time.Date(1980+int(yearSince1980), time.Month(monthOfYear), int(dayOfMonth), 0, 0, 0, 0, time.UTC)
}

// ParseTime reads a 16-bit FAT time stamp with 2-second granularity:
//
//	Bits 0-4:   2-second count, valid range 0-29 (0-58 seconds).
//	Bits 5-10:  minutes, valid range 0-59.
//	Bits 11-15: hours, valid range 0-23.
//
// The returned time always has a date of January 1, year 1, so a stored
// midnight satisfies time.Time.IsZero().
//
// Out-of-range fields simply add into the time, capped at 23:59:59.
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := input & 0x7E0 >> 5
	hours := input & 0xF800 >> 11

	result := time.Date(1, 1, 1, int(hours), int(minutes), seconds, 0, time.UTC)

	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// EncodeDate renders t as a 16-bit FAT date stamp. Times before the MS-DOS
// epoch encode as the epoch itself since the format cannot express them.
func EncodeDate(t time.Time) uint16 {
	t = t.UTC()
	year := t.Year()
	if year < 1980 {
		return 1<<5 | 1 // 1980-01-01
	}
	if year > 2107 {
		year = 2107
	}
	return uint16(year-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
}

// EncodeTime renders the clock of t as a 16-bit FAT time stamp, rounding
// seconds down to the 2-second granularity of the format.
func EncodeTime(t time.Time) uint16 {
	t = t.UTC()
	return uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
}

// combineDateTime merges a parsed date and time the way the directory codec
// stores them, returning the zero time for an invalid date.
func combineDateTime(date, clock uint16) time.Time {
	d := ParseDate(date)
	if d.IsZero() {
		return time.Time{}
	}
	c := ParseTime(clock)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
}
