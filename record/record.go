package record

import (
	"errors"
	"fmt"
	"time"
)

// Record is the reputation state for one fingerprint. A zero time.Time in any
// of the timestamp fields means the event has never happened.
type Record struct {
	ReportCount   uint64
	ReportEntered time.Time
	ReportUpdated time.Time

	WhitelistCount   uint64
	WhitelistEntered time.Time
	WhitelistUpdated time.Time
}

// Report records one "unwanted" report at now.
func (r *Record) Report(now time.Time) {
	r.ReportCount++
	if r.ReportEntered.IsZero() {
		r.ReportEntered = now
	}
	r.ReportUpdated = now
}

// Whitelist records one vouch event at now.
func (r *Record) Whitelist(now time.Time) {
	r.WhitelistCount++
	if r.WhitelistEntered.IsZero() {
		r.WhitelistEntered = now
	}
	r.WhitelistUpdated = now
}

// IsZero reports whether r carries no reputation at all, which is what a
// fingerprint that was never stored looks like.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Validate checks that the timestamps agree with the counts.
func (r Record) Validate() error {
	if err := checkSeries("report", r.ReportCount, r.ReportEntered, r.ReportUpdated); err != nil {
		return err
	}
	return checkSeries("whitelist", r.WhitelistCount, r.WhitelistEntered, r.WhitelistUpdated)
}

func checkSeries(name string, count uint64, entered, updated time.Time) error {
	if count == 0 {
		return nil
	}
	if entered.IsZero() {
		return fmt.Errorf("%v count is %v but no entry time is set", name, count)
	}
	if updated.Before(entered) {
		return errors.New(name + " updated time precedes its entry time")
	}
	return nil
}
