package fanout

// DefaultBatchLimit is the push provider's documented multicast ceiling.
const DefaultBatchLimit = 500

// Chunk partitions tokens strictly in input order into batches of at most
// limit tokens. The last batch may be shorter. Concatenating the output
// reproduces the input exactly.
func Chunk(tokens []string, limit int) [][]string {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if len(tokens) == 0 {
		return nil
	}

	batches := make([][]string, 0, (len(tokens)+limit-1)/limit)
	for start := 0; start < len(tokens); start += limit {
		end := start + limit
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, tokens[start:end])
	}
	return batches
}
