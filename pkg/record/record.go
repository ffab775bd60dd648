package record

import (
	"strconv"
	"time"
)

// TimestampLayout is the wall clock layout used in every CSV line.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the fixed first line of the readings file.
const Header = "timestamp,sensor,raw_value,percentage,sensor,raw_value,percentage,raw_avg,pct_avg"

// ErrorTag marks a failed cycle in place of the first sensor tag.
const ErrorTag = "ERROR"

// Reading is one channel sample taken during a cycle.
type Reading struct {
	Tag        string  `json:"sensor"`
	Raw        uint16  `json:"raw"`
	Percentage float64 `json:"percentage"`
}

// Aggregate is the per-cycle record: two readings plus their averages.
type Aggregate struct {
	Timestamp         string  `json:"timestamp"`
	First             Reading `json:"s1"`
	Second            Reading `json:"s2"`
	RawAverage        uint16  `json:"raw_avg"`
	PercentageAverage float64 `json:"pct_avg"`
}

// NewAggregate builds the record for one cycle, computing both averages.
func NewAggregate(ts string, first, second Reading) Aggregate {
	return Aggregate{
		Timestamp:         ts,
		First:             first,
		Second:            second,
		RawAverage:        RawAverage(first.Raw, second.Raw),
		PercentageAverage: PercentageAverage(first.Percentage, second.Percentage),
	}
}

// Fields returns the nine CSV columns in header order.
func (a Aggregate) Fields() []string {
	return []string{
		a.Timestamp,
		a.First.Tag, strconv.Itoa(int(a.First.Raw)), FormatPercentage(a.First.Percentage),
		a.Second.Tag, strconv.Itoa(int(a.Second.Raw)), FormatPercentage(a.Second.Percentage),
		strconv.Itoa(int(a.RawAverage)), FormatPercentage(a.PercentageAverage),
	}
}

// RawAverage is the floor of the mean of two raw samples.
func RawAverage(a, b uint16) uint16 {
	return uint16((uint32(a) + uint32(b)) / 2)
}

// PercentageAverage is the mean of two percentages rounded to one decimal.
func PercentageAverage(a, b float64) float64 {
	return Round1((a + b) / 2)
}

// Round1 rounds v to one decimal place, rounding the exact binary value
// (0.25 -> 0.2, 0.35 -> 0.3).
func Round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// FormatPercentage renders a percentage with exactly one decimal.
func FormatPercentage(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatTimestamp renders t as YYYY-MM-DD HH:MM:SS.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
