package b3

import (
	"strings"
	"testing"
)

func TestHashReader_Deterministic(t *testing.T) {
	a, err := HashReader(strings.NewReader("lecture"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := HashReader(strings.NewReader("lecture"))
	c, _ := HashReader(strings.NewReader("lecture!"))
	if a != b {
		t.Errorf("same input hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different input hashed identically")
	}
	if len(a) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(a))
	}
}

func TestFingerprint_PartBoundaries(t *testing.T) {
	a, err := Fingerprint("ab", "c")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Fingerprint("a", "bc")
	if a == b {
		t.Error("part boundaries should change the fingerprint")
	}

	type settings struct {
		Limit int `json:"limit"`
		Skip  int `json:"-"`
	}
	x, _ := Fingerprint(settings{Limit: 1, Skip: 1})
	y, _ := Fingerprint(settings{Limit: 1, Skip: 2})
	if x != y {
		t.Error("json:\"-\" fields should not affect the fingerprint")
	}
}
