package main

import (
	"encoding/binary"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	audioFormat     = sdl.AUDIO_S16LSB
	audioChannels   = 2
	audioBufferSize = 4096
)

// sdlOutput queues audio samples to the default SDL audio device.
type sdlOutput struct {
	dev sdl.AudioDeviceID
	buf []byte
}

func openSDLOutput(sampleRate int) (*sdlOutput, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, err
	}

	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   audioFormat,
		Channels: audioChannels,
		Samples:  audioBufferSize,
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return nil, err
	}
	sdl.PauseAudioDevice(dev, false)
	return &sdlOutput{dev: dev}, nil
}

func (o *sdlOutput) WriteSamples(frames []int16) error {
	o.buf = o.buf[:0]
	for _, s := range frames {
		o.buf = binary.LittleEndian.AppendUint16(o.buf, uint16(s))
	}
	return sdl.QueueAudio(o.dev, o.buf)
}

func (o *sdlOutput) Close() error {
	sdl.CloseAudioDevice(o.dev)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}
