package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
)

// monoStreamer plays mono samples on both channels.
func monoStreamer(samples []float32) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := copy2(buf, samples[pos:])
		pos += n
		return n, true
	})
}

func copy2(dst [][2]float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		v := float64(src[i])
		dst[i] = [2]float64{v, v}
	}
	return n
}

// EncodeWAV writes a as 16-bit mono PCM WAV.
func EncodeWAV(w io.WriteSeeker, a backend.Audio) error {
	format := beep.Format{
		SampleRate:  beep.SampleRate(a.SampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, monoStreamer(a.Samples), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// TempWAV writes a to a new temporary WAV file in dir. The returned release
// function removes it and must be called on every path.
func TempWAV(dir string, a backend.Audio) (string, func(), error) {
	f, err := os.CreateTemp(dir, "notewhisper_segment_*.wav")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()
	release := func() { os.Remove(path) }

	if err := EncodeWAV(f, a); err != nil {
		f.Close()
		release()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		release()
		return "", func() {}, fmt.Errorf("close temp wav: %w", err)
	}
	return path, release, nil
}
