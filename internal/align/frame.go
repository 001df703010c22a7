package align

import (
	"fmt"
	"strings"
)

// ByteSrc is one input byte placed in a frame layout: byte Lane of input
// word Word of stream Stream.
type ByteSrc struct {
	Stream       int
	Word         int
	Lane         int
	FromLastWord bool
}

// Word is one bus word; nil entries are padding.
type Word []*ByteSrc

// Frame is a sequence of words.
type Frame []Word

// key returns a string identifying the layout, used for deduplication.
func (f Frame) key() string {
	var b strings.Builder
	for _, w := range f {
		b.WriteByte('[')
		for _, s := range w {
			if s == nil {
				b.WriteString("-;")
				continue
			}
			fmt.Fprintf(&b, "%d.%d.%d.%t;", s.Stream, s.Word, s.Lane, s.FromLastWord)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// firstOccupied returns the index of the first non-padding byte, or 0.
// It is used as the output offset the next stream starts at.
func firstOccupied(w Word) int {
	for i, b := range w {
		if b != nil {
			return i
		}
	}
	return 0
}

// CreateFrame lays out byteCnt bytes of stream, skipping offsetIn bytes of
// the first input word and preceding the data with offsetOut padding bytes.
// Both offsets must be smaller than the word width.
func (r *Resolver) CreateFrame(stream, byteCnt, offsetOut, offsetIn int) Frame {
	wb := r.WordBytes
	if byteCnt < 0 || offsetOut < 0 || offsetOut >= wb || offsetIn < 0 || offsetIn >= wb {
		panic(fmt.Sprintf("align: invalid frame geometry: bytes=%d offset_out=%d offset_in=%d word_bytes=%d",
			byteCnt, offsetOut, offsetIn, wb))
	}
	frame := Frame{}
	if byteCnt == 0 {
		return frame
	}

	lastInWord := -1
	if offsetOut > 0 {
		frame = append(frame, make(Word, offsetOut))
		lastInWord = 0
	}

	lastWord := (offsetIn + byteCnt - 1) / wb
	for i := 0; i < byteCnt; i++ {
		inB := i + offsetIn
		src := &ByteSrc{
			Stream:       stream,
			Word:         inB / wb,
			Lane:         inB % wb,
			FromLastWord: inB/wb == lastWord,
		}
		if src.Word == lastInWord {
			frame[len(frame)-1] = append(frame[len(frame)-1], src)
		} else {
			lastInWord = src.Word
			frame = append(frame, Word{src})
		}
	}

	last := frame[len(frame)-1]
	for len(last) < wb {
		last = append(last, nil)
	}
	frame[len(frame)-1] = last
	return frame
}

// JoinStreams concatenates the frames of all streams behind offset padding
// bytes and cuts the result into output words. Padding inside the input
// frames is dropped.
func (r *Resolver) JoinStreams(frames []Frame, offset int) Frame {
	wb := r.WordBytes
	if offset < 0 || offset >= wb {
		panic(fmt.Sprintf("align: invalid output offset %d for word_bytes=%d", offset, wb))
	}
	data := make([]*ByteSrc, offset)
	for _, f := range frames {
		for _, w := range f {
			data = append(data, w...)
		}
	}

	res := Frame{}
	for i, d := range data {
		if i >= offset && d == nil {
			continue
		}
		if len(res) == 0 || len(res[len(res)-1]) == wb {
			res = append(res, Word{d})
		} else {
			res[len(res)-1] = append(res[len(res)-1], d)
		}
	}

	if len(res) > 0 {
		last := res[len(res)-1]
		for len(last) < wb {
			last = append(last, nil)
		}
		res[len(res)-1] = last
	}
	return res
}
