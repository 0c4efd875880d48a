package inference

// Smoother is a majority vote over the last K predicted class indices.
// K = 0 disables smoothing.
type Smoother struct {
	size   int
	window []int
}

// NewSmoother returns a smoother with window size k (negative k is treated as 0).
func NewSmoother(k int) *Smoother {
	if k < 0 {
		k = 0
	}
	return &Smoother{size: k, window: make([]int, 0, k)}
}

// Push records class and returns the most frequent class in the window.
// Counts are tallied oldest to newest; the first class to reach the
// highest count wins a tie.
func (s *Smoother) Push(class int) int {
	if s.size == 0 {
		return class
	}
	s.window = append(s.window, class)
	if over := len(s.window) - s.size; over > 0 {
		s.window = append(s.window[:0], s.window[over:]...)
	}
	counts := make(map[int]int, len(s.window))
	best, bestCount := class, 0
	for _, c := range s.window {
		counts[c]++
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// Clear empties the window.
func (s *Smoother) Clear() {
	s.window = s.window[:0]
}

// Len returns the number of votes in the window.
func (s *Smoother) Len() int {
	return len(s.window)
}

// Size returns the configured window size K.
func (s *Smoother) Size() int {
	return s.size
}

// Window returns a copy of the votes, oldest first.
func (s *Smoother) Window() []int {
	return append([]int(nil), s.window...)
}
