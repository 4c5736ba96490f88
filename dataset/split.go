package dataset

import (
	"math/rand"
	"sort"
)

// Split partitions the sample set into train/validation/test subsets using
// the fixed seed, so repeated construction yields identical partitions.
//
// Mask-paired mode carves off ratio of the total for validation, then ratio
// of the remaining train portion for test; the two fractions are therefore
// not symmetric. Labeled mode performs a single stratified split that
// preserves class proportions between train and validation, with no test
// subset.
func (m *Manager) Split(ratio float64) error {
	switch m.mode {
	case Labeled:
		m.train, m.valid = stratifiedSplit(m.samples, ratio, m.seed)
		m.test = nil
	default:
		m.train, m.valid, m.test = twoStageSplit(m.samples, ratio, m.seed)
	}

	m.log.Infof("split: train %d, valid %d, test %d", len(m.train), len(m.valid), len(m.test))
	m.calcSteps()
	return nil
}

// twoStageSplit shuffles once per stage with the same seed. The pairing of
// inputs and masks is preserved because a single permutation moves whole
// samples.
func twoStageSplit(samples []Sample, ratio float64, seed int64) (train, valid, test []Sample) {
	remaining, valid := randomSplit(samples, ratio, seed)
	train, test = randomSplit(remaining, ratio, seed)
	return train, valid, test
}

// randomSplit carves off ratio of the samples into the second return value.
func randomSplit(samples []Sample, ratio float64, seed int64) ([]Sample, []Sample) {
	n := len(samples)
	size := int(float64(n) * ratio)

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	carved := make([]Sample, 0, size)
	kept := make([]Sample, 0, n-size)
	for i, idx := range perm {
		if i < size {
			carved = append(carved, samples[idx])
		} else {
			kept = append(kept, samples[idx])
		}
	}
	return kept, carved
}

// stratifiedSplit keeps each class's proportion identical between train and
// validation. Classes are visited in sorted order so the partition depends
// only on seed and input ordering.
func stratifiedSplit(samples []Sample, ratio float64, seed int64) (train, valid []Sample) {
	groups := map[string][]Sample{}
	for _, s := range samples {
		groups[s.Label] = append(groups[s.Label], s)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rng := rand.New(rand.NewSource(seed))
	for _, label := range labels {
		group := groups[label]
		perm := rng.Perm(len(group))
		size := int(float64(len(group)) * ratio)
		for i, idx := range perm {
			if i < size {
				valid = append(valid, group[idx])
			} else {
				train = append(train, group[idx])
			}
		}
	}
	return train, valid
}
