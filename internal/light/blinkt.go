package light

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Blinkt! wiring on the Raspberry Pi header, BCM numbering.
const (
	blinktDataPin  = "GPIO23"
	blinktClockPin = "GPIO24"
)

// APA102 framing: a start frame of 32 zero bits, one 32-bit word per LED,
// and enough trailing clocks to push the last word through the chain.
const (
	apaStartBits = 32
	apaEndBits   = 36
	apaLEDHeader = 0xE0
	apaMaxLevel  = 31
)

// ErrNoPins is returned by OpenBlinkt when the host has no GPIO pins with
// the Blinkt! names.
var ErrNoPins = errors.New("light: blinkt gpio pins not found")

// OutPin is a GPIO line driven as an output. periph's gpio.PinIO satisfies it.
type OutPin interface {
	Out(l gpio.Level) error
}

// Blinkt drives an APA102 chain such as the Pimoroni Blinkt! by clocking
// bits out of two GPIO pins.
type Blinkt struct {
	dat, clk OutPin
	pixels   int

	mu     sync.Mutex
	closed bool
}

// OpenBlinkt initialises the host GPIO drivers and claims the Blinkt! pins.
//
// Parameters:
//   - n: number of LEDs on the chain
//
// Returns:
//   - *Blinkt: strip ready for Show
//   - error: if the host has no usable GPIO or the pins cannot be driven
func OpenBlinkt(n int) (*Blinkt, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising gpio host: %w", err)
	}
	dat := gpioreg.ByName(blinktDataPin)
	clk := gpioreg.ByName(blinktClockPin)
	if dat == nil || clk == nil {
		return nil, fmt.Errorf("%w: %s, %s", ErrNoPins, blinktDataPin, blinktClockPin)
	}
	return NewBlinkt(dat, clk, n)
}

// NewBlinkt drives an n-LED chain through the given data and clock pins.
// Both pins are set low first.
func NewBlinkt(dat, clk OutPin, n int) (*Blinkt, error) {
	for _, p := range []OutPin{dat, clk} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("configuring blinkt pin: %w", err)
		}
	}
	return &Blinkt{dat: dat, clk: clk, pixels: n}, nil
}

// Pixels returns the chain length.
func (b *Blinkt) Pixels() int { return b.pixels }

// Show clocks frame out to the chain.
func (b *Blinkt) Show(frame Frame) error {
	if len(frame) != b.pixels {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(frame), b.pixels)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Close blanks the chain and stops accepting frames.
func (b *Blinkt) Close() error {
	err := b.Show(Blank(b.pixels))
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("blanking strip on close: %w", err)
	}
	return nil
}

func (b *Blinkt) write(frame Frame) error {
	if err := b.zeros(apaStartBits); err != nil {
		return err
	}
	for _, p := range frame {
		word := [4]byte{apaLEDHeader | apaLevel(p.Brightness), p.B, p.G, p.R}
		for _, v := range word {
			if err := b.writeByte(v); err != nil {
				return err
			}
		}
	}
	return b.zeros(apaEndBits)
}

func (b *Blinkt) writeByte(v uint8) error {
	for i := 7; i >= 0; i-- {
		if err := b.bit(v&(1<<i) != 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blinkt) zeros(n int) error {
	for _i := 0; _i < n; _i++ {
		if err := b.bit(false); err != nil {
			return err
		}
	}
	return nil
}

// bit presents one data bit and pulses the clock; the LED latches on the
// rising edge.
func (b *Blinkt) bit(v bool) error {
	if err := b.dat.Out(gpio.Level(v)); err != nil {
		return err
	}
	if err := b.clk.Out(gpio.High); err != nil {
		return err
	}
	return b.clk.Out(gpio.Low)
}

// apaLevel maps a brightness in [0, 1] to the 5-bit global level.
func apaLevel(brightness float64) uint8 {
	level := math.Round(clamp(brightness) * apaMaxLevel)
	return uint8(level)
}
