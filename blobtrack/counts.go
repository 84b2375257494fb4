package blobtrack

// EstimateCounts estimates how many of n objects each raw blob contains.
// A blob's share is the average of its area and perimeter fractions. Rounded
// shares are reconciled until they sum to exactly n: the blob with the largest
// shortfall gets one more, the most over-assigned blob gets one less. Ties go
// to the lower index. Returns nil for no blobs.
func EstimateCounts(blobs []*RawBlob, n int) []int {
	if len(blobs) == 0 {
		return nil
	}
	if n < 0 {
		n = 0
	}
	totalArea := 0.0
	totalPerimeter := 0.0
	for _, rb := range blobs {
		totalArea += float64(rb.Area())
		totalPerimeter += rb.Perimeter
	}
	shares := make([]float64, len(blobs))
	counts := make([]int, len(blobs))
	sum := 0
	for i, rb := range blobs {
		areaFrac := 0.0
		if totalArea > 0 {
			areaFrac = float64(rb.Area()) / totalArea
		}
		if totalPerimeter > 0 {
			shares[i] = float64(n) * (areaFrac + rb.Perimeter/totalPerimeter) / 2.0
		} else {
			shares[i] = float64(n) * areaFrac
		}
		counts[i] = int(shares[i] + 0.5)
		sum += counts[i]
	}
	for sum < n {
		best := 0
		for i := 1; i < len(blobs); i++ {
			if shares[i]-float64(counts[i]) > shares[best]-float64(counts[best]) {
				best = i
			}
		}
		counts[best]++
		sum++
	}
	for sum > n {
		best := -1
		for i := range blobs {
			if counts[i] == 0 {
				continue
			}
			if best < 0 || float64(counts[i])-shares[i] > float64(counts[best])-shares[best] {
				best = i
			}
		}
		counts[best]--
		sum--
	}
	return counts
}
