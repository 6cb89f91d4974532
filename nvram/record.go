// Package nvram keeps a small application record in the DS1302's
// battery-backed RAM. The record survives power loss of the host for as long
// as the RTC backup supply lasts.
//
// Layout, starting at RAM address 0:
//
//	0..1  magic "DS"
//	2     version
//	3..6  boot count, big endian
//	7     CRC-8/MAXIM over bytes 0..6
package nvram

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sigurn/crc8"
)

const (
	version    = 1
	RecordSize = 8
)

var magic = [2]byte{'D', 'S'}

var (
	ErrNoRecord = errors.New("nvram: no record")
	ErrChecksum = errors.New("nvram: checksum mismatch")
)

var table = crc8.MakeTable(crc8.CRC8_MAXIM)

// RAM is the burst access to the chip's RAM, see ds1302.Device.
type RAM interface {
	ReadRAMBurst(ctx context.Context, n int) ([]byte, error)
	WriteRAMBurst(ctx context.Context, data []byte) (int, error)
}

type Record struct {
	BootCount uint32 `yaml:"boot_count"`
}

func (r Record) Encode() []byte {
	buf := make([]byte, RecordSize)
	copy(buf, magic[:])
	buf[2] = version
	binary.BigEndian.PutUint32(buf[3:7], r.BootCount)
	buf[7] = crc8.Checksum(buf[:7], table)
	return buf
}

func Decode(buf []byte) (Record, error) {
	if len(buf) < RecordSize || buf[0] != magic[0] || buf[1] != magic[1] {
		return Record{}, ErrNoRecord
	}
	if buf[2] != version {
		return Record{}, fmt.Errorf("%w: version %d", ErrNoRecord, buf[2])
	}
	if sum := crc8.Checksum(buf[:7], table); sum != buf[7] {
		return Record{}, fmt.Errorf("%w: got %#02x, computed %#02x", ErrChecksum, buf[7], sum)
	}
	return Record{BootCount: binary.BigEndian.Uint32(buf[3:7])}, nil
}

func Load(ctx context.Context, ram RAM) (Record, error) {
	buf, err := ram.ReadRAMBurst(ctx, RecordSize)
	if err != nil {
		return Record{}, fmt.Errorf("nvram: could not read record: %w", err)
	}
	return Decode(buf)
}

func Store(ctx context.Context, ram RAM, r Record) error {
	n, err := ram.WriteRAMBurst(ctx, r.Encode())
	if err != nil {
		return fmt.Errorf("nvram: could not write record: %w", err)
	}
	if n != RecordSize {
		return fmt.Errorf("nvram: short write: %d", n)
	}
	return nil
}

// IncrementBootCount bumps the stored counter and returns the new value. A
// missing or corrupted record counts as no previous boot, so the first call
// returns 1.
func IncrementBootCount(ctx context.Context, ram RAM) (uint32, error) {
	r, err := Load(ctx, ram)
	switch {
	case errors.Is(err, ErrNoRecord), errors.Is(err, ErrChecksum):
		slog.Info("nvram record reset", "reason", err)
		r = Record{}
	case err != nil:
		return 0, err
	}
	r.BootCount++
	if err := Store(ctx, ram, r); err != nil {
		return 0, err
	}
	return r.BootCount, nil
}
