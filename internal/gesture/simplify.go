package gesture

import "math"

// Simplify collapses values into its alternating sequence of local extrema.
//
// Runs of non-decreasing values are reduced to their maximum and runs of non-increasing
// values to their minimum. The first value is kept as the start of the first run and the
// last run's extreme closes the sequence. Equal consecutive values extend the current run.
func Simplify(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	out := []float64{values[0]}
	dir := 0 // +1 rising, -1 falling, 0 until the first change

	for _, v := range values[1:] {
		last := len(out) - 1
		switch {
		case dir > 0 && v >= out[last]:
			out[last] = v
		case dir < 0 && v <= out[last]:
			out[last] = v
		case v > out[last]:
			dir = 1
			out = append(out, v)
		case v < out[last]:
			dir = -1
			out = append(out, v)
		}
	}

	return out
}

// Differences returns the absolute difference between each pair of consecutive values.
func Differences(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	diffs := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diffs[i-1] = math.Abs(values[i] - values[i-1])
	}
	return diffs
}

// collapseSigns reduces values to one entry per sign run: the minimum of each run that
// starts at a value <= 0 and the maximum of each run that starts at a value > 0. A
// non-positive run ends at the first value > 0, a positive run only at the first value
// < 0, so zeros inside a positive run belong to it.
func collapseSigns(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	var out []float64
	positive := values[0] > 0
	extreme := values[0]

	for _, v := range values[1:] {
		if positive && v < 0 || !positive && v > 0 {
			out = append(out, extreme)
			positive = v > 0
			extreme = v
			continue
		}
		if positive && v > extreme || !positive && v < extreme {
			extreme = v
		}
	}

	return append(out, extreme)
}
