package analytics

// Partition splits ids into min(workers, len(ids)) contiguous chunks whose
// sizes differ by at most one. The first len(ids)%n chunks carry the extra
// element. workers below 1 is treated as 1. No chunk is empty.
func Partition(ids []string, workers int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	n := max(workers, 1)
	n = min(n, len(ids))

	size, extra := len(ids)/n, len(ids)%n
	chunks := make([][]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, ids[start:end])
		start = end
	}
	return chunks
}
