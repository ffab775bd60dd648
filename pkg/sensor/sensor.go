package sensor

import "github.com/ericogr/lightlog/pkg/record"

// MaxValue is the largest raw sample a 16-bit channel reports.
const MaxValue = 65535

// Source is one analog input. Sample triggers a conversion and returns the
// raw count in [0, MaxValue].
type Source interface {
	Sample() (uint16, error)
}

// Reader turns a Source into raw and percentage readings for one channel.
type Reader struct {
	tag string
	pin int
	src Source
}

func NewReader(tag string, pin int, src Source) *Reader {
	return &Reader{tag: tag, pin: pin, src: src}
}

// Tag is the label written to the CSV for this channel.
func (r *Reader) Tag() string { return r.tag }

func (r *Reader) Pin() int { return r.pin }

// ReadRaw returns the latest raw sample.
func (r *Reader) ReadRaw() (uint16, error) {
	return r.src.Sample()
}

// ReadPercentage triggers a fresh conversion and scales it to 0..100.
func (r *Reader) ReadPercentage() (float64, error) {
	raw, err := r.ReadRaw()
	if err != nil {
		return 0, err
	}
	return Percentage(raw), nil
}

// Percentage scales a raw count to a percentage of MaxValue, one decimal.
func Percentage(raw uint16) float64 {
	return record.Round1(float64(raw) / MaxValue * 100)
}
