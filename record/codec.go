package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the stored timestamp format: fixed width, microsecond
// precision, always UTC.
const TimeLayout = "2006-01-02 15:04:05.000000"

const fieldCount = 6

// ErrCorruptRecord is wrapped by every decoding failure.
var ErrCorruptRecord = errors.New("corrupt record")

// Encode renders r as
//
//	report_count,report_entered,report_updated,whitelist_count,whitelist_entered,whitelist_updated
//
// This is the format kept inside every backend, so it must not change.
func Encode(r Record) string {
	return strings.Join([]string{
		strconv.FormatUint(r.ReportCount, 10),
		encodeTime(r.ReportEntered),
		encodeTime(r.ReportUpdated),
		strconv.FormatUint(r.WhitelistCount, 10),
		encodeTime(r.WhitelistEntered),
		encodeTime(r.WhitelistUpdated),
	}, ",")
}

// Decode parses a stored value. A nil value stands for a key that isn't in
// the store and yields the zero Record.
func Decode(value []byte) (Record, error) {
	if value == nil {
		return Record{}, nil
	}

	fields := strings.Split(string(value), ",")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: expected %v fields but got %v", ErrCorruptRecord, fieldCount, len(fields))
	}

	var r Record
	var err error
	if r.ReportCount, err = decodeCount(fields[0]); err != nil {
		return Record{}, err
	}
	if r.ReportEntered, err = decodeTime(fields[1]); err != nil {
		return Record{}, err
	}
	if r.ReportUpdated, err = decodeTime(fields[2]); err != nil {
		return Record{}, err
	}
	if r.WhitelistCount, err = decodeCount(fields[3]); err != nil {
		return Record{}, err
	}
	if r.WhitelistEntered, err = decodeTime(fields[4]); err != nil {
		return Record{}, err
	}
	if r.WhitelistUpdated, err = decodeTime(fields[5]); err != nil {
		return Record{}, err
	}
	return r, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q: %v", ErrCorruptRecord, s, err)
	}
	return t, nil
}

func decodeCount(s string) (uint64, error) {
	// Surrounding whitespace is rejected too; Encode never writes any.
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad count %q", ErrCorruptRecord, s)
	}
	return n, nil
}
