// Package wavout writes the audio output to a 16-bit stereo WAV file.
package wavout

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	numChannels = 2
	bitDepth    = 16
	pcmFormat   = 1
)

type Writer struct {
	f   *os.File
	enc *wav.Encoder
	buf audio.IntBuffer
}

// Create creates the WAV file at path.
func Create(path string, sampleRate int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav output: %w", err)
	}
	w := &Writer{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, bitDepth, numChannels, pcmFormat),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}
	return w, nil
}

// WriteSamples writes interleaved stereo samples.
func (w *Writer) WriteSamples(frames []int16) error {
	w.buf.Data = w.buf.Data[:0]
	for _, s := range frames {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.enc.Write(&w.buf)
}

// Close finalizes the WAV headers and closes the file.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("wav output: %w", err)
	}
	return nil
}
