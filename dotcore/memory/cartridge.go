package memory

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/valerio/dotcore/dotcore/bit"
)

const titleLength = 16

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
	headerEnd             = 0x150
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

var (
	// ErrMalformedCartridge is returned for images whose header is out of range or
	// that are shorter than the header declares.
	ErrMalformedCartridge = errors.New("malformed cartridge image")
	// ErrUnsupportedCartridge is returned for controller types this core does not emulate.
	ErrUnsupportedCartridge = errors.New("unsupported cartridge type")
)

// ramSizes maps header byte 0x149 to the external RAM size in bytes.
var ramSizes = [...]int{0, 2 * 1024, 8 * 1024, 32 * 1024, 128 * 1024, 64 * 1024}

// Kind is the closed set of bank controllers.
type Kind uint8

const (
	KindROMOnly Kind = iota
	KindMBC1
	KindMBC3
)

func (k Kind) String() string {
	switch k {
	case KindROMOnly:
		return "ROM only"
	case KindMBC1:
		return "MBC1"
	case KindMBC3:
		return "MBC3"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Header holds the cartridge metadata read from 0x134-0x14F.
type Header struct {
	Title          string
	Type           uint8
	ROMSize        int
	RAMSize        int
	HeaderChecksum uint8
	GlobalChecksum uint16
	HasBattery     bool
	HasRTC         bool
}

type cartType struct {
	kind    Kind
	ram     bool
	battery bool
	rtc     bool
}

var cartTypes = map[uint8]cartType{
	0x00: {kind: KindROMOnly},
	0x08: {kind: KindROMOnly, ram: true},
	0x09: {kind: KindROMOnly, ram: true, battery: true},
	0x01: {kind: KindMBC1},
	0x02: {kind: KindMBC1, ram: true},
	0x03: {kind: KindMBC1, ram: true, battery: true},
	0x0F: {kind: KindMBC3, battery: true, rtc: true},
	0x10: {kind: KindMBC3, ram: true, battery: true, rtc: true},
	0x11: {kind: KindMBC3},
	0x12: {kind: KindMBC3, ram: true},
	0x13: {kind: KindMBC3, ram: true, battery: true},
}

// ParseHeader validates the header of a cartridge image.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerEnd {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedCartridge, len(data))
	}

	romClass := data[romSizeAddress]
	if romClass > 8 {
		return Header{}, fmt.Errorf("%w: ROM size class 0x%02X", ErrMalformedCartridge, romClass)
	}
	romSize := (32 * 1024) << romClass
	if len(data) < romSize {
		return Header{}, fmt.Errorf("%w: image has %d bytes, header declares %d", ErrMalformedCartridge, len(data), romSize)
	}

	ramClass := data[ramSizeAddress]
	if int(ramClass) >= len(ramSizes) {
		return Header{}, fmt.Errorf("%w: RAM size class 0x%02X", ErrMalformedCartridge, ramClass)
	}

	typ, ok := cartTypes[data[cartridgeTypeAddress]]
	if !ok {
		return Header{}, fmt.Errorf("%w: 0x%02X", ErrUnsupportedCartridge, data[cartridgeTypeAddress])
	}

	ramSize := ramSizes[ramClass]
	if !typ.ram {
		ramSize = 0
	}

	return Header{
		Title:          cleanTitle(data[titleAddress : titleAddress+titleLength]),
		Type:           data[cartridgeTypeAddress],
		ROMSize:        romSize,
		RAMSize:        ramSize,
		HeaderChecksum: data[headerChecksumAddress],
		GlobalChecksum: bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1]),
		HasBattery:     typ.battery,
		HasRTC:         typ.rtc,
	}, nil
}

// cleanTitle turns the raw title bytes into something printable. Titles are
// NUL padded and newer headers reuse the last bytes for other fields.
func cleanTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		if b == 0 {
			break
		}
		r := rune(b)
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}

// Cartridge is the ROM image together with its bank controller and external RAM.
//
// The controller is a tagged variant: kind selects the behavior of the shared
// registers below, and every access dispatches with a single switch.
type Cartridge struct {
	header Header
	kind   Kind
	rom    []byte
	ram    []byte

	ramEnabled bool
	// romBank holds the 5 bit (MBC1) or 7 bit (MBC3) ROM bank register.
	romBank uint8
	// bank2 is the MBC1 secondary register or the MBC3 RAM bank / RTC select.
	bank2 uint8
	// mode is the MBC1 banking mode.
	mode      uint8
	lastLatch uint8
	rtc       RTC
}

// NewCartridge validates data and builds the matching controller. The image is
// copied, so the caller may reuse data.
func NewCartridge(data []byte) (*Cartridge, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	c := &Cartridge{
		header:    header,
		kind:      cartTypes[header.Type].kind,
		rom:       make([]byte, len(data)),
		ram:       make([]byte, header.RAMSize),
		romBank:   1,
		lastLatch: 0xFF,
	}
	copy(c.rom, data)
	return c, nil
}

// NewEmptyCartridge returns a 32KB ROM-only cartridge filled with 0xFF, for
// running the core without a game.
func NewEmptyCartridge() *Cartridge {
	rom := make([]byte, 2*romBankSize)
	for i := range rom {
		rom[i] = 0xFF
	}
	return &Cartridge{
		header:  Header{Title: "(Empty)", ROMSize: len(rom)},
		kind:    KindROMOnly,
		rom:     rom,
		romBank: 1,
	}
}

// Header returns the parsed header.
func (c *Cartridge) Header() Header {
	return c.header
}

// Kind returns the bank controller kind.
func (c *Cartridge) Kind() Kind {
	return c.kind
}

// ExternalRAM exposes the battery backed RAM contents.
func (c *Cartridge) ExternalRAM() []byte {
	return c.ram
}

// Tick advances the cartridge clock by one machine cycle.
func (c *Cartridge) Tick() {
	if c.header.HasRTC {
		c.rtc.Tick()
	}
}
