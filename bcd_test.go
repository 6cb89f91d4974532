package ds1302

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBCD_RoundTrip(t *testing.T) {
	for v := uint8(0); v <= 99; v++ {
		assert.Equal(t, v, FromBCD(ToBCD(v)), "value %d", v)
	}
}

func TestBCD_Encoding(t *testing.T) {
	tests := []struct {
		dec uint8
		bcd byte
	}{
		{0, 0x00},
		{9, 0x09},
		{10, 0x10},
		{45, 0x45},
		{59, 0x59},
		{99, 0x99},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(test.dec), func(t *testing.T) {
			assert.Equal(t, test.bcd, ToBCD(test.dec))
			assert.Equal(t, test.dec, FromBCD(test.bcd))
		})
	}
}

func TestBCD_MalformedNibble(t *testing.T) {
	// not rejected by the codec, left for date time validation
	assert.Equal(t, uint8(60), FromBCD(0x5A))
	assert.Equal(t, uint8(165), FromBCD(0xFF))
}
