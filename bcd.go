package ds1302

// ToBCD packs the tens digit of dec into the high nibble and the units digit
// into the low nibble. Values above 99 are not checked; callers mask each
// field to its register width first.
func ToBCD(dec uint8) byte {
	return ((dec / 10) << 4) | (dec % 10)
}

// FromBCD is the inverse of ToBCD. Nibbles above 9 are not rejected here, the
// out-of-range result is caught by DateTime validation.
func FromBCD(bcd byte) uint8 {
	return (bcd>>4)*10 + (bcd & 0x0F)
}
