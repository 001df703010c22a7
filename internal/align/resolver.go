package align

import (
	"fmt"
	"sort"

	"github.com/roach88/framejoin/internal/ir"
)

// Resolver enumerates frame layouts for an output bus of WordBytes bytes
// whose first frame word starts at byte OutOffset.
type Resolver struct {
	WordBytes int
	OutOffset int
}

// New creates a Resolver.
func New(wordBytes, outOffset int) *Resolver {
	return &Resolver{WordBytes: wordBytes, OutOffset: outOffset}
}

// FrameInfo summarizes how a frame of a given length sits on the bus.
type FrameInfo struct {
	FirstWordBytes        int
	HasBodyWords          bool
	LastWordBytes         int
	MinRepresentativeSize int
}

// BytesInFrameInfo computes the first and last word occupancy of a frame
// of chunkCnt chunks and the smallest byte count producing the same
// mask/last/mux features.
func (r *Resolver) BytesInFrameInfo(offsetOut, offsetIn, chunkSize, chunkCnt int, alreadyHasBodyWords bool) FrameInfo {
	wb := r.WordBytes
	offset := max(offsetIn, offsetOut)
	total := offset + chunkSize*chunkCnt

	info := FrameInfo{
		FirstWordBytes: min(wb-offset, chunkCnt*chunkSize),
		LastWordBytes:  total % wb,
		HasBodyWords:   total >= 2*wb,
	}
	firstIsLast := total <= wb

	size := info.FirstWordBytes
	if info.HasBodyWords && (offset != 0 || !alreadyHasBodyWords) {
		size += wb
	}
	if !firstIsLast && !(info.HasBodyWords && info.LastWordBytes == wb) {
		size += info.LastWordBytes
	}
	if info.FirstWordBytes == wb && size > wb {
		info.HasBodyWords = true
	}
	info.MinRepresentativeSize = size
	return info
}

// ImportantByteCounts filters the chunk count range [cntMin, cntMax] down to
// byte counts that differ in first/last word occupancy or in the presence
// of body words. cntMax may be ir.Unbounded.
func (r *Resolver) ImportantByteCounts(offsetOut, offsetIn, chunkSize, cntMin, cntMax int) []int {
	if cntMax != ir.Unbounded && cntMin == cntMax {
		info := r.BytesInFrameInfo(offsetOut, offsetIn, chunkSize, cntMin, false)
		return []int{info.MinRepresentativeSize}
	}

	period := 2 * r.WordBytes
	lo := cntMin % period
	span := period
	if cntMax != ir.Unbounded {
		span = min(period, cntMax-cntMin)
	}

	sizes := map[int]struct{}{}
	hasBody := false
	for cnt := lo; cnt <= lo+span; cnt++ {
		info := r.BytesInFrameInfo(offsetOut, offsetIn, chunkSize, cnt, hasBody)
		sizes[info.MinRepresentativeSize] = struct{}{}
		hasBody = hasBody || info.HasBodyWords
	}
	return sortedInts(sizes)
}

// StreamFormats returns every representative layout of one stream when its
// first byte lands at output offset offsetOut.
func (r *Resolver) StreamFormats(s ir.StreamSpec, stream, offsetOut int) []Frame {
	var frames []Frame
	for _, offsetIn := range s.Offsets() {
		for _, byteCnt := range r.ImportantByteCounts(offsetOut, offsetIn, s.ElementBytes, s.LenMin, s.LenMax) {
			frames = append(frames, r.CreateFrame(stream, byteCnt, offsetOut, offsetIn))
		}
	}
	return frames
}

// FrameFormats returns every distinct joined layout of the streams, in a
// deterministic order.
func (r *Resolver) FrameFormats(streams []ir.StreamSpec) []Frame {
	perStream := make([][]Frame, 0, len(streams))
	prevEnd := []int{r.OutOffset}
	for i, s := range streams {
		uniq := map[string]Frame{}
		for _, off := range prevEnd {
			for _, f := range r.StreamFormats(s, i, off) {
				uniq[f.key()] = f
			}
		}
		frames := sortedFrames(uniq)
		perStream = append(perStream, frames)

		ends := map[int]struct{}{}
		for _, f := range frames {
			o := 0
			if len(f) > 0 {
				o = firstOccupied(f[len(f)-1])
			}
			ends[o] = struct{}{}
		}
		prevEnd = sortedInts(ends)
	}

	joined := map[string]Frame{}
	forEachCombination(perStream, func(combo []Frame) {
		f := r.JoinStreams(combo, r.OutOffset)
		joined[f.key()] = f
	})
	return sortedFrames(joined)
}

// Resolve computes the routing of every input byte of streams.
func (r *Resolver) Resolve(streams []ir.StreamSpec) (ir.Routing, error) {
	if err := r.check(streams); err != nil {
		return nil, err
	}
	return r.Destinations(r.FrameFormats(streams), len(streams)), nil
}

// Destinations records, for every byte of every frame layout, its output
// word label, lookahead and output lane. The lookahead is the distance of
// the byte's input word from the earliest word of the same stream present
// in that output word.
func (r *Resolver) Destinations(frames []Frame, streamCount int) ir.Routing {
	sets := make([][]map[ir.RouteTarget]struct{}, streamCount)
	for i := range sets {
		sets[i] = make([]map[ir.RouteTarget]struct{}, r.WordBytes)
		for j := range sets[i] {
			sets[i][j] = map[ir.RouteTarget]struct{}{}
		}
	}

	for fi, f := range frames {
		for wi, w := range f {
			label := ir.StateLabel{Frame: fi, Word: wi}
			minWord := make([]int, streamCount)
			for i := range minWord {
				minWord[i] = -1
			}
			for _, b := range w {
				if b != nil && (minWord[b.Stream] < 0 || b.Word < minWord[b.Stream]) {
					minWord[b.Stream] = b.Word
				}
			}
			for outLane, b := range w {
				if b == nil {
					continue
				}
				sets[b.Stream][b.Lane][ir.RouteTarget{
					Label:        label,
					Time:         b.Word - minWord[b.Stream],
					OutLane:      outLane,
					FromLastWord: b.FromLastWord,
				}] = struct{}{}
			}
		}
	}

	routing := ir.NewRouting(streamCount, r.WordBytes)
	for s, lanes := range sets {
		for lane, set := range lanes {
			targets := make([]ir.RouteTarget, 0, len(set))
			for t := range set {
				targets = append(targets, t)
			}
			sort.Slice(targets, func(i, j int) bool {
				return compareTargets(targets[i], targets[j]) < 0
			})
			routing[s][lane] = targets
		}
	}
	return routing
}

// CanProduceZeroLenFrame reports, per stream, whether it can produce an
// empty frame.
func CanProduceZeroLenFrame(streams []ir.StreamSpec) []bool {
	out := make([]bool, len(streams))
	for i, s := range streams {
		out[i] = s.CanBeEmpty()
	}
	return out
}

func (r *Resolver) check(streams []ir.StreamSpec) error {
	if r.WordBytes <= 0 {
		return fmt.Errorf("align: word_bytes must be positive, got %d", r.WordBytes)
	}
	if r.OutOffset < 0 || r.OutOffset >= r.WordBytes {
		return fmt.Errorf("align: out_offset %d outside [0, %d)", r.OutOffset, r.WordBytes)
	}
	if len(streams) == 0 {
		return fmt.Errorf("align: no input streams")
	}
	for i, s := range streams {
		if s.ElementBytes <= 0 {
			return fmt.Errorf("align: stream %d: element_bytes must be positive, got %d", i, s.ElementBytes)
		}
		if s.LenMin < 0 {
			return fmt.Errorf("align: stream %d: len_min must not be negative, got %d", i, s.LenMin)
		}
		if !s.IsUnbounded() && s.LenMax < s.LenMin {
			return fmt.Errorf("align: stream %d: len_max %d below len_min %d", i, s.LenMax, s.LenMin)
		}
		for _, o := range s.Offsets() {
			if o < 0 || o >= r.WordBytes {
				return fmt.Errorf("align: stream %d: start offset %d outside [0, %d)", i, o, r.WordBytes)
			}
		}
	}
	return nil
}

func compareTargets(a, b ir.RouteTarget) int {
	if c := a.Label.Compare(b.Label); c != 0 {
		return c
	}
	switch {
	case a.Time != b.Time:
		return a.Time - b.Time
	case a.OutLane != b.OutLane:
		return a.OutLane - b.OutLane
	case a.FromLastWord == b.FromLastWord:
		return 0
	case a.FromLastWord:
		return 1
	}
	return -1
}

// forEachCombination calls fn with every element of the cartesian product
// of sets, first set varying slowest.
func forEachCombination(sets [][]Frame, fn func([]Frame)) {
	combo := make([]Frame, len(sets))
	var walk func(int)
	walk = func(i int) {
		if i == len(sets) {
			fn(combo)
			return
		}
		for _, f := range sets[i] {
			combo[i] = f
			walk(i + 1)
		}
	}
	walk(0)
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func sortedFrames(set map[string]Frame) []Frame {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Frame, len(keys))
	for i, k := range keys {
		out[i] = set[k]
	}
	return out
}
