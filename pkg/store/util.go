package store

// InsertBatchSize bounds the rows written per statement by the SQL stores.
const InsertBatchSize = 500

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize covering [0, total).
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTopN maps n <= 0 to DefaultTopN.
func NormalizeTopN(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	return n
}
