package audio

import (
	"testing"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

const testRate = 1000

func testSettings() config.IngestSettings {
	return config.IngestSettings{
		MaxDurationSeconds: 3600,
		MaxSegmentSeconds:  5,
		MinSegmentMs:       1000,
		SilenceGapMs:       500,
		SilenceThreshold:   0.01,
	}
}

// tone returns n samples of an alternating ±0.5 square wave.
func tone(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.5
		} else {
			out[i] = -0.5
		}
	}
	return out
}

func silence(n int) []float32 {
	return make([]float32, n)
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func assertCoverage(t *testing.T, segs []model.Segment, n int) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("no segments")
	}
	if segs[0].StartSample != 0 || segs[0].Start != 0 {
		t.Errorf("first segment starts at %d, want 0", segs[0].StartSample)
	}
	for i, s := range segs {
		if s.Index != i {
			t.Errorf("segment %d has index %d", i, s.Index)
		}
		if s.EndSample <= s.StartSample {
			t.Errorf("segment %d is empty: [%d,%d)", i, s.StartSample, s.EndSample)
		}
		if len(s.Samples) != s.EndSample-s.StartSample {
			t.Errorf("segment %d has %d samples, want %d", i, len(s.Samples), s.EndSample-s.StartSample)
		}
		if i > 0 {
			prev := segs[i-1]
			if prev.EndSample != s.StartSample || prev.End != s.Start {
				t.Errorf("gap or overlap between segment %d and %d: %d/%d", i-1, i, prev.EndSample, s.StartSample)
			}
		}
	}
	last := segs[len(segs)-1]
	if last.EndSample != n {
		t.Errorf("last segment ends at %d, want %d", last.EndSample, n)
	}
	if last.End != SampleDuration(n, testRate) {
		t.Errorf("last segment ends at %v, want %v", last.End, SampleDuration(n, testRate))
	}
}

func TestSplit_Empty(t *testing.T) {
	s := NewSegmenter(testSettings(), testRate)
	if segs := s.Split(nil, testRate); segs != nil {
		t.Errorf("Split(nil) = %v, want nil", segs)
	}
}

func TestSplit_CutsAtSilenceMidpoint(t *testing.T) {
	samples := concat(tone(2000), silence(1000), tone(2000))
	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)

	assertCoverage(t, segs, len(samples))
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].EndSample != 2500 {
		t.Errorf("boundary at %d, want 2500", segs[0].EndSample)
	}
	if segs[0].End != 2500*time.Millisecond {
		t.Errorf("boundary time %v, want 2.5s", segs[0].End)
	}
}

func TestSplit_ShortSilenceIgnored(t *testing.T) {
	samples := concat(tone(2000), silence(200), tone(2000))
	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)

	assertCoverage(t, segs, len(samples))
	if len(segs) != 1 {
		t.Errorf("got %d segments, want 1 (gap below threshold)", len(segs))
	}
}

func TestSplit_SilenceTooEarlyForMinimumSegment(t *testing.T) {
	// Silence midpoint at 700 is below the 1000-sample minimum.
	samples := concat(tone(200), silence(1000), tone(2000))
	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)

	assertCoverage(t, segs, len(samples))
	if len(segs) != 1 {
		t.Errorf("got %d segments, want 1", len(segs))
	}
}

func TestSplit_DurationCeiling(t *testing.T) {
	samples := tone(12000)
	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)

	assertCoverage(t, segs, len(samples))
	want := [][2]int{{0, 5000}, {5000, 10000}, {10000, 12000}}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i, w := range want {
		if segs[i].StartSample != w[0] || segs[i].EndSample != w[1] {
			t.Errorf("segment %d = [%d,%d), want [%d,%d)", i, segs[i].StartSample, segs[i].EndSample, w[0], w[1])
		}
	}
}

func TestSplit_ShortTailMergedIntoPrevious(t *testing.T) {
	samples := concat(tone(3000), silence(1000), tone(300))
	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)

	assertCoverage(t, segs, len(samples))
	if len(segs) != 1 {
		t.Errorf("got %d segments, want 1 (tail merged)", len(segs))
	}
}

func TestSplit_CoverageOnMixedPattern(t *testing.T) {
	var parts [][]float32
	for i := 0; i < 30; i++ {
		parts = append(parts, tone(700+i*97%3000), silence(150+i*61%900))
	}
	samples := concat(parts...)

	segs := NewSegmenter(testSettings(), testRate).Split(samples, testRate)
	assertCoverage(t, segs, len(samples))
	for _, s := range segs {
		if s.EndSample-s.StartSample > 5000 {
			t.Errorf("segment %d longer than ceiling: %d samples", s.Index, s.EndSample-s.StartSample)
		}
	}
}
