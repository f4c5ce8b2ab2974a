// Package filename implements the fixed file-name grammar required by the
// invoicing channel: {TYPE}.{nodeId}.{YYYYDDD}.{HHMM}.{NNN}.zip. The grammar
// is an external contract, not an internal convenience format.
package filename

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

type Type string

const (
	TypeInvoiceIn  Type = "FI"
	TypeInvoiceOut Type = "FO"
	TypeOutcome    Type = "EO"
	TypeReceipt    Type = "ER"
)

const (
	// Sequence ranges are split by channel: production files use 000-899,
	// test files 900-999. Test mode is recoverable from the sequence alone.
	prodSeqMin = 0
	prodSeqMax = 899
	testSeqMin = 900
	testSeqMax = 999
)

var namePattern = regexp.MustCompile(`^(FI|FO|EO|ER)\.([A-Za-z0-9]+)\.(\d{4})(\d{3})\.(\d{2})(\d{2})\.(\d{3})\.zip$`)

// Decoded is the parsed form of a valid file name.
type Decoded struct {
	Type     Type
	NodeID   string
	Year     int
	YearDay  int
	Hour     int
	Minute   int
	Sequence int
	TestMode bool
}

type Codec struct {
	nodeID string
}

func NewCodec(nodeID string) *Codec {
	return &Codec{nodeID: nodeID}
}

// Encode builds the file name for the given moment. Sequences outside the
// channel's range are clamped to its boundary, not rejected.
func (c *Codec) Encode(t Type, sequence int, testMode bool, now time.Time) string {
	return fmt.Sprintf("%s.%s.%04d%03d.%02d%02d.%03d.zip",
		t, c.nodeID, now.Year(), now.YearDay(), now.Hour(), now.Minute(),
		ClampSequence(sequence, testMode))
}

// Decode is the exact inverse of Encode. It reports ok=false for any string
// outside the grammar instead of failing.
func (c *Codec) Decode(name string) (Decoded, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Decoded{}, false
	}

	year, _ := strconv.Atoi(m[3])
	yearDay, _ := strconv.Atoi(m[4])
	hour, _ := strconv.Atoi(m[5])
	minute, _ := strconv.Atoi(m[6])
	sequence, _ := strconv.Atoi(m[7])

	if yearDay < 1 || yearDay > daysInYear(year) {
		return Decoded{}, false
	}
	if hour > 23 || minute > 59 {
		return Decoded{}, false
	}

	return Decoded{
		Type:     Type(m[1]),
		NodeID:   m[2],
		Year:     year,
		YearDay:  yearDay,
		Hour:     hour,
		Minute:   minute,
		Sequence: sequence,
		TestMode: sequence >= testSeqMin,
	}, true
}

// WrapSequence maps an ever-increasing counter onto the channel's sequence
// range, cycling at the boundary. Assignment uses this; ClampSequence is only
// the guard for externally supplied values.
func WrapSequence(counter int, testMode bool) int {
	if counter < 1 {
		counter = 1
	}
	if testMode {
		return testSeqMin + (counter-1)%(testSeqMax-testSeqMin+1)
	}
	return prodSeqMin + (counter-1)%(prodSeqMax-prodSeqMin+1)
}

func ClampSequence(sequence int, testMode bool) int {
	if testMode {
		if sequence < testSeqMin {
			return testSeqMin
		}
		if sequence > testSeqMax {
			return testSeqMax
		}
		return sequence
	}
	if sequence < prodSeqMin {
		return prodSeqMin
	}
	if sequence > prodSeqMax {
		return prodSeqMax
	}
	return sequence
}

func daysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
