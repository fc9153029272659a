package checks

// setAccuracy scores agreement between two item-key sets as the size of the
// intersection over the size of the union. Two empty sets agree perfectly.
func setAccuracy(expected, actual []string) float64 {
	if len(expected) == 0 && len(actual) == 0 {
		return 1.0
	}

	expectedSet := make(map[string]struct{}, len(expected))
	for _, k := range expected {
		expectedSet[k] = struct{}{}
	}
	actualSet := make(map[string]struct{}, len(actual))
	for _, k := range actual {
		actualSet[k] = struct{}{}
	}

	intersection := 0
	for k := range expectedSet {
		if _, ok := actualSet[k]; ok {
			intersection++
		}
	}
	union := len(expectedSet) + len(actualSet) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// mean averages a slice, returning 0 for an empty one.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// relativeError returns |actual-expected| / |expected|, treating an expected
// value of zero specially: zero error when both are zero, full error
// otherwise.
func relativeError(expected, actual float64) float64 {
	if expected == 0 {
		if actual == 0 {
			return 0
		}
		return 1
	}
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	ref := expected
	if ref < 0 {
		ref = -ref
	}
	return diff / ref
}
