package bincodec

// checkSize enforces the payload ceiling. Pure and format-agnostic: it
// applies to fallback output exactly as to the primary encoding, since
// the limit protects downstream transports, not any one format.
// limit <= 0 disables the check.
func checkSize(n, limit int) error {
	if limit > 0 && n > limit {
		return &SizeExceededError{Actual: n, Limit: limit}
	}
	return nil
}
