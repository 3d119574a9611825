package barometer

// window is a fixed-capacity FIFO of readings backed by a ring buffer.
// When full, push overwrites the oldest entry.
type window struct {
	buf  []float64
	head int // index of the oldest entry
	n    int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) push(v float64) {
	if w.n == len(w.buf) {
		w.buf[w.head] = v
		w.head = (w.head + 1) % len(w.buf)
		return
	}
	w.buf[(w.head+w.n)%len(w.buf)] = v
	w.n++
}

func (w *window) oldest() (float64, bool) {
	if w.n == 0 {
		return 0, false
	}
	return w.buf[w.head], true
}

func (w *window) len() int { return w.n }

func (w *window) cap() int { return len(w.buf) }

// values returns a copy of the readings, oldest first.
func (w *window) values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}
