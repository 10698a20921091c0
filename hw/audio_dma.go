package hw

import (
	"dspi/emu/log"
	"dspi/hw/hwdefs"
	"dspi/hw/hwio"
)

// AudioDMA streams blocks of 32 bytes from main memory to the audio sink, one
// block per tick.
type AudioDMA struct {
	dsp *DSP

	ReadAddress uint32 // next block to send
	BlocksLeft  uint16

	block [hwdefs.AudioDMABlockSize]byte

	START      hwio.Reg32 `hwio:"offset=0x30"`
	CONTROL    hwio.Reg16 `hwio:"offset=0x36,wcb"`     // bit 15: enable, bits 0-14: number of blocks
	BLOCKSLEFT hwio.Reg16 `hwio:"offset=0x3A,rcb,wcb"` //
}

func (a *AudioDMA) Enabled() bool     { return hwio.GetBit16(a.CONTROL.Value, 15) }
func (a *AudioDMA) NumBlocks() uint16 { return a.CONTROL.Value & 0x7FFF }

// latch restarts the transfer from the programmed start address.
func (a *AudioDMA) latch() {
	a.BlocksLeft = a.NumBlocks()
	a.ReadAddress = a.START.Value
}

func (a *AudioDMA) WriteCONTROL(old, val uint16) {
	if !hwio.GetBit16(old, 15) && hwio.GetBit16(val, 15) {
		a.latch()
		log.ModAudio.InfoZ("AID DMA started").
			Hex32("addr", a.ReadAddress).
			Uint16("blocks", a.BlocksLeft).
			End()
		a.dsp.GenerateInterrupt(hwdefs.IntAID, true)
	}
}

// BLOCKSLEFT reads the number of blocks still to be sent.
func (a *AudioDMA) ReadBLOCKSLEFT(_ uint16, _ bool) uint16 {
	return a.BlocksLeft
}

func (a *AudioDMA) WriteBLOCKSLEFT(old, val uint16) {
	a.BLOCKSLEFT.Value = old
	a.dsp.assert("W16: AUDIO_DMA_BLOCKS_LEFT is read-only", DSPBase+0x3A, uint32(val))
}

// Tick sends one block to the audio sink, if a transfer is running. When the
// last block is sent, the transfer restarts and an AID interrupt is raised.
func (a *AudioDMA) Tick() {
	if !a.Enabled() || a.BlocksLeft == 0 {
		return
	}

	for i := range a.block {
		a.block[i] = a.dsp.ram.Read8(a.ReadAddress + uint32(i))
	}
	a.dsp.sink.SendAIBuffer(a.ReadAddress, a.block[:], a.dsp.rates.DSPSampleRate())

	a.ReadAddress += hwdefs.AudioDMABlockSize
	a.BlocksLeft--
	if a.BlocksLeft == 0 {
		a.latch()
		log.ModAudio.DebugZ("audio DMA loop").
			Hex32("addr", a.ReadAddress).
			Uint16("blocks", a.BlocksLeft).
			End()
		a.dsp.GenerateInterrupt(hwdefs.IntAID, true)
	}
}
