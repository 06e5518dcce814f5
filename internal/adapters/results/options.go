package results

// storeConfig carries construction-time settings.
type storeConfig struct {
	shardCount int
}

// Option applies a configuration option to the ShardedStore.
type Option func(*storeConfig)

// WithShardCount sets how many lock domains the store spreads voters over.
func WithShardCount(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.shardCount = n
		}
	}
}
