package dataset

import (
	"fmt"
	"testing"
)

func syntheticSamples(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			InputPath: fmt.Sprintf("images/%03d.tif", i),
			MaskPath:  fmt.Sprintf("masks/%03d.tif", i),
		}
	}
	return samples
}

func samplePaths(samples []Sample) []string {
	paths := make([]string, len(samples))
	for i, s := range samples {
		paths[i] = s.InputPath
	}
	return paths
}

func TestTwoStageSplitCounts(t *testing.T) {
	train, valid, test := twoStageSplit(syntheticSamples(100), 0.2, 42)

	// 20% of the total for validation, then 20% of the remaining 80 for
	// test. The fractions are deliberately not symmetric.
	if len(valid) != 20 {
		t.Errorf("valid = %d, want 20", len(valid))
	}
	if len(test) != 16 {
		t.Errorf("test = %d, want 16", len(test))
	}
	if len(train) != 64 {
		t.Errorf("train = %d, want 64", len(train))
	}

	seen := map[string]int{}
	for _, s := range append(append(append([]Sample{}, train...), valid...), test...) {
		seen[s.InputPath]++
	}
	if len(seen) != 100 {
		t.Errorf("subsets cover %d distinct samples, want 100", len(seen))
	}
	for path, count := range seen {
		if count != 1 {
			t.Errorf("%s appears %d times across subsets", path, count)
		}
	}
}

func TestTwoStageSplitReproducible(t *testing.T) {
	a1, b1, c1 := twoStageSplit(syntheticSamples(50), 0.2, 42)
	a2, b2, c2 := twoStageSplit(syntheticSamples(50), 0.2, 42)

	for _, pair := range [][2][]Sample{{a1, a2}, {b1, b2}, {c1, c2}} {
		p1, p2 := samplePaths(pair[0]), samplePaths(pair[1])
		if len(p1) != len(p2) {
			t.Fatalf("subset sizes differ: %d vs %d", len(p1), len(p2))
		}
		for i := range p1 {
			if p1[i] != p2[i] {
				t.Fatalf("same seed produced different partitions at %d: %s vs %s", i, p1[i], p2[i])
			}
		}
	}
}

func TestTwoStageSplitSeedChangesPartition(t *testing.T) {
	_, valid1, _ := twoStageSplit(syntheticSamples(50), 0.2, 42)
	_, valid2, _ := twoStageSplit(syntheticSamples(50), 0.2, 7)

	same := true
	p1, p2 := samplePaths(valid1), samplePaths(valid2)
	for i := range p1 {
		if p1[i] != p2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical validation subsets")
	}
}

// Splitting moves whole samples, so an image can never end up in a
// different subset than its mask.
func TestTwoStageSplitKeepsPairs(t *testing.T) {
	train, valid, test := twoStageSplit(syntheticSamples(30), 0.2, 42)
	for _, subset := range [][]Sample{train, valid, test} {
		for _, s := range subset {
			if s.InputPath[len("images/"):] != s.MaskPath[len("masks/"):] {
				t.Errorf("pair broken: %s / %s", s.InputPath, s.MaskPath)
			}
		}
	}
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	var samples []Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, Sample{InputPath: fmt.Sprintf("cat%d.tif", i), Label: "cat"})
	}
	for i := 0; i < 20; i++ {
		samples = append(samples, Sample{InputPath: fmt.Sprintf("dog%d.tif", i), Label: "dog"})
	}

	train, valid := stratifiedSplit(samples, 0.2, 42)
	if len(valid) != 6 || len(train) != 24 {
		t.Fatalf("split = %d/%d, want 24/6", len(train), len(valid))
	}

	count := func(subset []Sample, label string) int {
		n := 0
		for _, s := range subset {
			if s.Label == label {
				n++
			}
		}
		return n
	}
	if got := count(valid, "cat"); got != 2 {
		t.Errorf("valid cats = %d, want 2", got)
	}
	if got := count(valid, "dog"); got != 4 {
		t.Errorf("valid dogs = %d, want 4", got)
	}
}

func TestManagerSetSeedResplits(t *testing.T) {
	m, err := NewImgMaskDataset(maskFixture(t, 20))
	if err != nil {
		t.Fatal(err)
	}
	before := samplePaths(m.valid)
	m.SetSeed(7)
	after := samplePaths(m.valid)

	if len(before) != len(after) {
		t.Fatalf("subset size changed: %d vs %d", len(before), len(after))
	}
	same := true
	for i := range before {
		if before[i] != after[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("re-seeding did not change the partition")
	}
}
