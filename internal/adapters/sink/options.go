package sink

// SQLiteOption configures a SQLiteSink.
type SQLiteOption func(*SQLiteSink)

// WithBatchSize caps how many results each transaction commits. Values
// below one keep the default.
func WithBatchSize(size int) SQLiteOption {
	return func(s *SQLiteSink) {
		if size > 0 {
			s.batchSize = size
		}
	}
}
