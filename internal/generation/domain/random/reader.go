package random

// Reader adapts a Source to io.Reader so byte-oriented consumers (uuid
// generation) draw from the same stream.
type Reader struct {
	src Source
}

// NewReader wraps src.
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// Read fills p with one byte per draw.
func (r *Reader) Read(p []byte) (int, error) {
	for i := range p {
		b, err := r.src.NextInt(256)
		if err != nil {
			return i, err
		}
		p[i] = byte(b)
	}
	return len(p), nil
}
