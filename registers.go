package ds1302

// Register is a 5-bit register index in the clock region.
type Register byte

// Clock region registers.
const (
	RegSeconds        Register = 0x00 // bit 7 is the clock halt flag
	RegMinutes        Register = 0x01
	RegHours          Register = 0x02
	RegDayMonth       Register = 0x03
	RegMonth          Register = 0x04
	RegDayWeek        Register = 0x05
	RegYear           Register = 0x06
	RegWriteProtect   Register = 0x07 // bit 7 is the write protect flag
	RegTrickleCharger Register = 0x08
)

// Region selects which address space a command byte targets.
type Region byte

const (
	RegionClock Region = 0x00
	RegionRAM   Region = 0x40
)

// Direction of the data phase that follows a command byte.
type Direction byte

const (
	Write Direction = 0x00
	Read  Direction = 0x01
)

const (
	cmdMarker    = 0x80
	addressMask  = 0x1F
	burstAddress = 0x1F

	bitHalt         = 7
	bitWriteProtect = 7

	// RAMSize is the number of battery-backed RAM bytes, addresses 0..30.
	RAMSize = 31
	// clockBlockSize covers seconds..year; the burst continues into the
	// write protect register which makes clockBurstSize.
	clockBlockSize = 7
	clockBurstSize = 8

	// TrickleChargerDisabled is the power-on trickle charge register value.
	TrickleChargerDisabled byte = 0x5C
)

// Command assembles the address/command byte:
//
//	[7]=1 [6]=region [5:1]=address [0]=direction
//
// Only the low 5 bits of addr are used; 0x1F addresses the whole block (burst).
func Command(region Region, addr byte, dir Direction) byte {
	return cmdMarker | byte(region) | (addr&addressMask)<<1 | byte(dir)
}

// BurstCommand addresses the whole clock or RAM block.
func BurstCommand(region Region, dir Direction) byte {
	return Command(region, burstAddress, dir)
}

func isRead(cmd byte) bool {
	return Direction(cmd&0x01) == Read
}
