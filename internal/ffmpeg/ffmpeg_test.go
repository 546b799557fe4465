package ffmpeg

import (
	"testing"
	"time"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [{"codec_name": "aac", "sample_rate": "44100", "channels": 2}],
		"format": {"duration": "3723.456789"}
	}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	want := MediaInfo{
		Duration:   time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond,
		Codec:      "aac",
		SampleRate: 44100,
		Channels:   2,
	}
	if *info != want {
		t.Errorf("parseProbe() = %+v, want %+v", *info, want)
	}
}

func TestParseProbe_NoAudio(t *testing.T) {
	if _, err := parseProbe([]byte(`{"streams": [], "format": {"duration": "1.0"}}`)); err == nil {
		t.Error("expected an error for a file without audio")
	}
	if _, err := parseProbe([]byte(`not json`)); err == nil {
		t.Error("expected an error for malformed output")
	}
}

func TestIsVideoExtension(t *testing.T) {
	for ext, want := range map[string]bool{".mp4": true, ".MKV": true, ".wav": false, ".m4a": false} {
		if got := IsVideoExtension(ext); got != want {
			t.Errorf("IsVideoExtension(%q) = %v, want %v", ext, got, want)
		}
	}
}
