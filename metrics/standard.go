package metrics

// Pre-defined verifier metrics, registered in the default registry.
var (
	// BlocksVerified counts blocks whose computed root matched.
	BlocksVerified = DefaultRegistry.Counter("verifier/blocks/verified")

	// BlocksFailed counts blocks that ended in any error or mismatch.
	BlocksFailed = DefaultRegistry.Counter("verifier/blocks/failed")

	// GasUsed accumulates gas across verified blocks.
	GasUsed = DefaultRegistry.Counter("verifier/gas/used")

	// TransactionsExecuted counts transactions across verified blocks.
	TransactionsExecuted = DefaultRegistry.Counter("verifier/txs/executed")

	// BlockTime records per-block verification wall time in seconds.
	BlockTime = DefaultRegistry.Histogram("verifier/block/seconds")

	// ChunksVerified counts fully verified chunks.
	ChunksVerified = DefaultRegistry.Counter("verifier/chunks/verified")
)
