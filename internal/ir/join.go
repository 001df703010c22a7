package ir

// Unbounded marks a stream without an upper frame length.
const Unbounded = -1

// JoinSpec describes one frame-join block: the output word width, the
// output start offset and the ordered input streams.
type JoinSpec struct {
	Name      string       `json:"name" yaml:"name"`
	WordBytes int          `json:"word_bytes" yaml:"word_bytes"`
	OutOffset int          `json:"out_offset" yaml:"out_offset"`
	Streams   []StreamSpec `json:"streams" yaml:"streams"`
}

// StreamSpec describes the frames one input stream can produce.
// Frame lengths count elements of ElementBytes bytes.
type StreamSpec struct {
	ElementBytes int   `json:"element_bytes" yaml:"element_bytes"`
	LenMin       int   `json:"len_min" yaml:"len_min"`
	LenMax       int   `json:"len_max" yaml:"len_max"` // Unbounded for no limit
	StartOffsets []int `json:"start_offsets" yaml:"start_offsets"`
}

// IsUnbounded reports whether the stream has no upper frame length.
func (s StreamSpec) IsUnbounded() bool {
	return s.LenMax == Unbounded
}

// CanBeEmpty reports whether the stream can produce a zero-length frame.
func (s StreamSpec) CanBeEmpty() bool {
	return s.LenMin == 0
}

// Offsets returns the start offsets, defaulting to [0].
func (s StreamSpec) Offsets() []int {
	if len(s.StartOffsets) == 0 {
		return []int{0}
	}
	return s.StartOffsets
}

// Normalized returns a copy with default start offsets filled in, so that
// equivalent specs serialize identically.
func (j JoinSpec) Normalized() JoinSpec {
	n := j
	n.Streams = make([]StreamSpec, len(j.Streams))
	for i, s := range j.Streams {
		s.StartOffsets = append([]int(nil), s.Offsets()...)
		n.Streams[i] = s
	}
	return n
}
