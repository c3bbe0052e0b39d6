package assistant

import "math/rand"

// Chooser returns an index in [0, n). n is always at least 1.
type Chooser func(n int) int

// RandomChooser picks uniformly at random.
func RandomChooser() Chooser {
	return func(n int) int { return rand.Intn(n) }
}

// FixedChooser always picks index i, clamped into range.
func FixedChooser(i int) Chooser {
	return func(n int) int {
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}

func (c Chooser) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[c(len(pool))]
}
