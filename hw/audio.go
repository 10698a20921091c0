package hw

import (
	"encoding/binary"

	"github.com/arl/blip"

	"dspi/emu/log"
	"dspi/hw/hwdefs"
)

// AudioOutput receives interleaved stereo 16-bit samples at the mixer output
// rate.
type AudioOutput interface {
	WriteSamples(frames []int16) error
}

// Each 32-byte block holds 8 stereo frames. At 48kHz, with a 32kHz stream,
// it gives 12 output frames, keep a lot of headroom for odd rates.
const maxSamplesPerBlock = 1024

// AudioMixer is an AudioSink: it decodes the big-endian stereo 16-bit frames
// of the audio DMA blocks and resamples them to the output rate.
type AudioMixer struct {
	outbuf   [maxSamplesPerBlock * 2]int16
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevOutleft  int16
	prevOutright int16

	clockRate  uint32 // DSP sample rate
	sampleRate uint32 // output rate

	outputs []AudioOutput
	nframes uint64
}

func NewAudioMixer(sampleRate uint32, outputs ...AudioOutput) *AudioMixer {
	am := &AudioMixer{
		bufleft:    blip.NewBuffer(maxSamplesPerBlock),
		bufright:   blip.NewBuffer(maxSamplesPerBlock),
		sampleRate: sampleRate,
		outputs:    outputs,
	}
	am.Reset()
	return am
}

func (am *AudioMixer) Reset() {
	am.prevOutleft = 0
	am.prevOutright = 0
	am.bufleft.Clear()
	am.bufright.Clear()
	am.clockRate = 0
	am.nframes = 0
}

// Frames returns the number of frames written to the outputs.
func (am *AudioMixer) Frames() uint64 { return am.nframes }

func (am *AudioMixer) updateRates(clockRate uint32) {
	if am.clockRate == clockRate {
		return
	}
	am.clockRate = clockRate
	am.bufleft.SetRates(float64(am.clockRate), float64(am.sampleRate))
	am.bufright.SetRates(float64(am.clockRate), float64(am.sampleRate))
}

// SendAIBuffer implements AudioSink.
func (am *AudioMixer) SendAIBuffer(addr uint32, block []byte, sampleRate uint32) {
	if sampleRate == 0 {
		sampleRate = hwdefs.DefaultSampleRate
	}
	am.updateRates(sampleRate)

	nframes := len(block) / 4
	for i := range nframes {
		left := int16(binary.BigEndian.Uint16(block[i*4:]))
		right := int16(binary.BigEndian.Uint16(block[i*4+2:]))

		am.bufleft.AddDelta(uint64(i), int32(left)-int32(am.prevOutleft))
		am.bufright.AddDelta(uint64(i), int32(right)-int32(am.prevOutright))
		am.prevOutleft = left
		am.prevOutright = right
	}
	am.bufleft.EndFrame(nframes)
	am.bufright.EndFrame(nframes)

	count := am.bufleft.ReadSamples(am.outbuf[:], maxSamplesPerBlock, blip.Stereo)
	am.bufright.ReadSamples(am.outbuf[1:], maxSamplesPerBlock, blip.Stereo)
	if count == 0 {
		return
	}
	am.nframes += uint64(count)

	out := am.outbuf[:count*2]
	for _, o := range am.outputs {
		if err := o.WriteSamples(out); err != nil {
			log.ModAudio.WarnZ("failed to write audio samples").
				Hex32("addr", addr).
				Error("err", err).
				End()
		}
	}
}
