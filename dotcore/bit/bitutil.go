package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// HalfCarryAdd reports whether a + b + carry overflows out of bit 3.
func HalfCarryAdd(a, b, carry uint8) bool {
	return (a&0x0F)+(b&0x0F)+carry > 0x0F
}

// HalfBorrowSub reports whether a - b - borrow needs a borrow from bit 4.
func HalfBorrowSub(a, b, borrow uint8) bool {
	return int(a&0x0F)-int(b&0x0F)-int(borrow) < 0
}

// CarryAdd reports whether a + b + carry overflows out of bit 7.
func CarryAdd(a, b, carry uint8) bool {
	return uint16(a)+uint16(b)+uint16(carry) > 0xFF
}

// BorrowSub reports whether a - b - borrow goes below zero.
func BorrowSub(a, b, borrow uint8) bool {
	return int(a)-int(b)-int(borrow) < 0
}

// IsSet will check if the bit at the specified index is Set to 1 or not.
func IsSet(index, byte uint8) bool {
	return ((byte >> index) & 1) == 1
}

func IsSet16(index, value uint16) bool {
	return ((value >> index) & 1) == 1
}

// Clear will return the passed byte with the bit at the specified index Set to 0.
func Clear(index, byte uint8) uint8 {
	return byte & ^(1 << index)
}

// Set will return the passed byte with the bit at the specified index Set to 1.
func Set(index, byte uint8) uint8 {
	return byte | (1 << index)
}

// SetTo sets or clears the bit at index depending on value.
func SetTo(index, byte uint8, value bool) uint8 {
	if value {
		return Set(index, byte)
	}
	return Clear(index, byte)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// ExtractBits extracts bits from highBit to lowBit (inclusive)
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (extracts bits 6, 5, 4)
func ExtractBits(value uint8, highBit, lowBit uint8) uint8 {
	shift := lowBit
	width := highBit - lowBit + 1
	mask := uint8((1 << width) - 1)
	return (value >> shift) & mask
}
