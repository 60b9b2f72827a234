// Package crc implements table-driven 16-bit CRCs over packed bytes and
// over the 1-bit-per-byte buffers produced by burst extraction.
package crc

import "fmt"

type CRC struct {
	Name    string
	Init    uint16
	Poly    uint16
	Residue uint16

	tbl Table
}

func NewCRC(name string, init, poly, residue uint16) (crc CRC) {
	crc.Name = name
	crc.Init = init
	crc.Poly = poly
	crc.Residue = residue
	crc.tbl = NewTable(crc.Poly)

	return
}

// NewCCITT returns the CRC16-CCITT variant protecting the air interface's
// logic channels.
func NewCCITT() CRC {
	return NewCRC("CCITT", 0xFFFF, 0x1021, 0x1D0F)
}

func (crc CRC) String() string {
	return fmt.Sprintf("{Name:%s Init:0x%04X Poly:0x%04X Residue:0x%04X}", crc.Name, crc.Init, crc.Poly, crc.Residue)
}

func (crc CRC) Checksum(data []byte) uint16 {
	return Checksum(crc.Init, data, crc.tbl)
}

// ChecksumBits computes the checksum over a buffer holding one bit per
// byte, most significant bit first. Whole-byte spans are packed and run
// through the table, the remainder is shifted in bit-serially.
func (crc CRC) ChecksumBits(bits []byte) uint16 {
	sum := crc.Init

	packed := len(bits) &^ 7
	for idx := 0; idx < packed; idx += 8 {
		var v byte
		for _, b := range bits[idx : idx+8] {
			v = v<<1 | b&1
		}
		sum = sum<<8 ^ crc.tbl[sum>>8^uint16(v)]
	}

	for _, b := range bits[packed:] {
		feed := sum>>15 ^ uint16(b&1)
		sum <<= 1
		if feed != 0 {
			sum ^= crc.Poly
		}
	}
	return sum
}

// CheckBits validates a bit buffer whose trailing 16 bits are the
// transmitted checksum of the preceding payload.
func (crc CRC) CheckBits(bits []byte) bool {
	if len(bits) < 16 {
		return false
	}
	payload := bits[:len(bits)-16]

	var sent uint16
	for _, b := range bits[len(bits)-16:] {
		sent = sent<<1 | uint16(b&1)
	}

	return crc.ChecksumBits(payload) == sent
}

// AppendBits appends the payload's 16 checksum bits and returns the
// extended buffer.
func (crc CRC) AppendBits(bits []byte) []byte {
	sum := crc.ChecksumBits(bits)
	for shift := 15; shift >= 0; shift-- {
		bits = append(bits, byte(sum>>uint(shift)&1))
	}
	return bits
}

type Table [256]uint16

func NewTable(poly uint16) (table Table) {
	for tIdx := range table {
		crc := uint16(tIdx) << 8
		for bIdx := 0; bIdx < 8; bIdx++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc = crc << 1
			}
		}
		table[tIdx] = crc
	}
	return table
}

func Checksum(init uint16, data []byte, table Table) (crc uint16) {
	crc = init
	for _, v := range data {
		crc = crc<<8 ^ table[crc>>8^uint16(v)]
	}
	return
}
