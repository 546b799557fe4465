package audio

import (
	"math"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// frameMs is the RMS analysis window.
const frameMs = 20

// SampleDuration converts a sample count at rate Hz to a duration.
func SampleDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// Segmenter places segment boundaries at silences and at a duration ceiling.
type Segmenter struct {
	GapSamples        int
	MinSegmentSamples int
	MaxSegmentSamples int
	FrameSamples      int
	Threshold         float64
}

// NewSegmenter derives sample counts from settings for audio at rate Hz.
func NewSegmenter(s config.IngestSettings, rate int) *Segmenter {
	frame := max(rate*frameMs/1000, 1)
	return &Segmenter{
		GapSamples:        max(rate*s.SilenceGapMs/1000, 1),
		MinSegmentSamples: rate * s.MinSegmentMs / 1000,
		MaxSegmentSamples: max(int(s.MaxSegmentSeconds*float64(rate)), frame),
		FrameSamples:      frame,
		Threshold:         s.SilenceThreshold,
	}
}

// Split returns contiguous segments covering samples[0:len(samples)].
// Boundaries are shared sample indices, so consecutive segments never
// overlap or leave gaps.
func (s *Segmenter) Split(samples []float32, rate int) []model.Segment {
	n := len(samples)
	if n == 0 {
		return nil
	}

	var bounds [][2]int
	segStart := 0
	runStart := -1

	emit := func(end int) {
		bounds = append(bounds, [2]int{segStart, end})
		segStart = end
	}

	for fs := 0; fs < n; fs += s.FrameSamples {
		fe := min(fs+s.FrameSamples, n)

		if rms(samples[fs:fe]) < s.Threshold {
			if runStart < 0 {
				runStart = fs
			}
		} else {
			if runStart >= 0 && fs-runStart >= s.GapSamples {
				cut := runStart + (fs-runStart)/2
				if cut-segStart >= s.MinSegmentSamples && cut > segStart {
					emit(cut)
				}
			}
			runStart = -1
		}

		// Duration ceiling.
		for fe-segStart > s.MaxSegmentSamples {
			emit(segStart + s.MaxSegmentSamples)
			if runStart >= 0 && runStart < segStart {
				runStart = segStart
			}
		}
	}

	if segStart < n {
		tail := n - segStart
		last := len(bounds) - 1
		if last >= 0 && tail < s.MinSegmentSamples && bounds[last][1]-bounds[last][0]+tail <= s.MaxSegmentSamples {
			bounds[last][1] = n
		} else {
			emit(n)
		}
	}

	segments := make([]model.Segment, len(bounds))
	for i, b := range bounds {
		segments[i] = model.Segment{
			Index:       i,
			Start:       SampleDuration(b[0], rate),
			End:         SampleDuration(b[1], rate),
			StartSample: b[0],
			EndSample:   b[1],
			SampleRate:  rate,
			Samples:     samples[b[0]:b[1]],
		}
	}
	return segments
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
