package features

// Labels derives the binary forward outcome per feature row: 1 when the
// close `horizon` rows ahead is strictly greater than the current close.
// The last `horizon` rows have no defined label, so the returned slice is
// len(rows)-horizon long; training sets must be built from it as-is.
func Labels(rows []Row, horizon int) []float64 {
	if horizon <= 0 {
		horizon = 3
	}
	if len(rows) <= horizon {
		return nil
	}
	labels := make([]float64, len(rows)-horizon)
	for i := range labels {
		if rows[i+horizon].Close > rows[i].Close {
			labels[i] = 1
		}
	}
	return labels
}
