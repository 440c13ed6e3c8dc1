package binder

// BucketIndexStrategy maps a name hash to a bucket index.
// Implementations may return any int; callers treat out-of-range results as not found.
type BucketIndexStrategy interface {
	BucketIndex(hash uint64) int
}

// ModulusStrategy places a hash in bucket hash mod Count.
type ModulusStrategy struct {
	Count int
}

// BucketIndex returns hash mod Count, or -1 when Count is not positive.
func (s ModulusStrategy) BucketIndex(hash uint64) int {
	if s.Count <= 0 {
		return -1
	}
	return int(hash % uint64(s.Count))
}
