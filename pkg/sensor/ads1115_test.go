package sensor

import (
	"testing"
)

func TestConfigForChannelBytes(t *testing.T) {
	// channel 0, sample rate 128 -> expect msb 0xC3 lsb 0x83
	msb, lsb, err := configForChannel(0, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xC3 || lsb != 0x83 {
		t.Fatalf("channel0@128 => got %02X %02X; want C3 83", msb, lsb)
	}

	// channel 1, sample rate 128 -> D3 83
	msb, lsb, err = configForChannel(1, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xD3 || lsb != 0x83 {
		t.Fatalf("channel1@128 => got %02X %02X; want D3 83", msb, lsb)
	}

	// sample rate 8 for channel 0 -> msb C3 lsb 03 (dr=0)
	msb, lsb, err = configForChannel(0, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xC3 || lsb != 0x03 {
		t.Fatalf("channel0@8 => got %02X %02X; want C3 03", msb, lsb)
	}

	// invalid channel
	_, _, err = configForChannel(9, 128)
	if err == nil {
		t.Fatalf("expected error for invalid channel")
	}
}

func TestScaleToUint16(t *testing.T) {
	tests := []struct {
		in   int16
		want uint16
	}{
		{-12, 0},
		{0, 0},
		{1, 2},
		{16384, 32768},
		{32767, MaxValue},
	}
	for _, tt := range tests {
		if got := scaleToUint16(tt.in); got != tt.want {
			t.Fatalf("scaleToUint16(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestInputRejectsInvalidChannel(t *testing.T) {
	a := &ADS1115{sampleRate: 128}
	if _, err := a.Input(4); err == nil {
		t.Fatalf("expected error for input 4")
	}
	if _, err := a.Input(3); err != nil {
		t.Fatalf("input 3: %v", err)
	}
}
