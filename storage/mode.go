package storage

import "fmt"

// Mode is the kind of sharing a caller needs from a Handle.
type Mode int

const (
	// SingleProcess handles are used by one goroutine at a time.
	SingleProcess Mode = iota
	// ThreadShared handles may be used by many goroutines in one process.
	ThreadShared
	// MultiProcess handles may be opened against the same backend from
	// several independent processes.
	MultiProcess
)

// AllModes lists every Mode in order.
var AllModes = []Mode{SingleProcess, ThreadShared, MultiProcess}

var modeNames = map[Mode]string{
	SingleProcess: "single",
	ThreadShared:  "threaded",
	MultiProcess:  "multiprocess",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m, n := range modeNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown concurrency mode %q: expected \"single\", \"threaded\", or \"multiprocess\"", s)
}
