package synth

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framejoin/internal/ir"
)

func label(frame, word int) ir.StateLabel {
	return ir.StateLabel{Frame: frame, Word: word}
}

// ambiguousRequest routes the only byte of a 1B frame to either output
// lane. Both edges read the same register content.
func ambiguousRequest() Request {
	routing := ir.NewRouting(1, 2)
	routing[0][0] = []ir.RouteTarget{
		{Label: label(0, 0), Time: 0, OutLane: 0, FromLastWord: true},
		{Label: label(1, 0), Time: 0, OutLane: 1, FromLastWord: true},
	}
	return Request{WordBytes: 2, StreamCount: 1, Routing: routing}
}

func TestSynthesizeSingleUnalignedByte(t *testing.T) {
	routing := ir.NewRouting(1, 2)
	routing[0][1] = []ir.RouteTarget{{Label: label(0, 0), OutLane: 0, FromLastWord: true}}

	tt, err := Synthesize(Request{WordBytes: 2, StreamCount: 1, Routing: routing})
	require.NoError(t, err)

	assert.Equal(t, 1, tt.StateCount)
	assert.Equal(t, []int{0}, tt.MaxLookahead)
	require.Len(t, tt.States[0], 1)

	tr := tt.States[0][0]
	assert.Equal(t, 0, tr.State)
	assert.Equal(t, 0, tr.StateNext)
	assert.True(t, tr.Last)
	assert.Equal(t, []ir.Tri{ir.Lo, ir.Hi}, tr.Input[0][0].Keep)
	assert.Equal(t, ir.Lo, tr.Input[0][0].Relict)
	assert.Equal(t, ir.Hi, tr.Input[0][0].Last)
	assert.Equal(t, ir.Bits{true, false}, tr.OutputKeep)
	assert.Equal(t, []ir.MuxSel{ir.Mux(0, 0, 1), {}}, tr.OutByteMuxSel)
}

func TestSynthesizeRoutingConflict(t *testing.T) {
	routing := ir.NewRouting(2, 2)
	routing[0][0] = []ir.RouteTarget{{Label: label(0, 0), OutLane: 0, FromLastWord: true}}
	routing[1][0] = []ir.RouteTarget{{Label: label(0, 0), OutLane: 0, FromLastWord: true}}

	tt, err := Synthesize(Request{WordBytes: 2, StreamCount: 2, Routing: routing})
	require.Error(t, err)
	assert.Nil(t, tt)
	assert.True(t, IsRoutingConflict(err))
	assert.False(t, IsNonDeterministic(err))

	var rc *RoutingConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, label(0, 0), rc.Label)
	assert.Equal(t, 0, rc.OutLane)
	assert.Equal(t, 0, rc.Existing.Stream)
	assert.Equal(t, 1, rc.Incoming.Stream)
	assert.Contains(t, err.Error(), "output lane 0")
}

func TestSynthesizeNonDeterministic(t *testing.T) {
	tt, err := Synthesize(ambiguousRequest())
	require.Error(t, err)
	assert.Nil(t, tt)
	assert.True(t, IsNonDeterministic(err))
	assert.False(t, IsRoutingConflict(err))

	var nd *NonDeterministicTransitionError
	require.ErrorAs(t, err, &nd)
	assert.Equal(t, 0, nd.State)
	assert.False(t, nd.A.InputsExactlyDifferent(nd.B))
	assert.Contains(t, err.Error(), "state 0")
}

func TestSynthesizeValidatesRequest(t *testing.T) {
	ok := func() Request {
		r := ir.NewRouting(1, 2)
		r[0][0] = []ir.RouteTarget{{Label: label(0, 0), FromLastWord: true}}
		return Request{WordBytes: 2, StreamCount: 1, Routing: r}
	}
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"zero word", func(r *Request) { r.WordBytes = 0 }},
		{"zero streams", func(r *Request) { r.StreamCount = 0 }},
		{"routing streams", func(r *Request) { r.StreamCount = 2 }},
		{"zero-length flags", func(r *Request) { r.CanBeZeroLen = []bool{true, true} }},
		{"routing lanes", func(r *Request) { r.Routing[0] = r.Routing[0][:1] }},
		{"output lane", func(r *Request) { r.Routing[0][0][0].OutLane = 2 }},
		{"lookahead", func(r *Request) { r.Routing[0][0][0].Time = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ok()
			require.NoError(t, req.Validate())
			tt.mutate(&req)
			_, err := Synthesize(req)
			assert.Error(t, err)
			assert.False(t, IsRoutingConflict(err))
			assert.False(t, IsNonDeterministic(err))
		})
	}
}

func TestSynthesizeIsDeterministicPerState(t *testing.T) {
	for _, tc := range joinCases {
		t.Run(tc.name, func(t *testing.T) {
			tt, err := FromJoinSpec(tc.spec)
			require.NoError(t, err)
			for s, edges := range tt.States {
				for i := range edges {
					for j := i + 1; j < len(edges); j++ {
						assert.True(t, edges[i].InputsExactlyDifferent(edges[j]),
							"state %d edges %d and %d overlap", s, i, j)
					}
				}
			}
		})
	}
}

func TestFilterUniqueIsIdempotentOnSynthesizedTables(t *testing.T) {
	for _, tc := range joinCases {
		t.Run(tc.name, func(t *testing.T) {
			tt, err := FromJoinSpec(tc.spec)
			require.NoError(t, err)

			again, err := FromJoinSpec(tc.spec)
			require.NoError(t, err)
			again.FilterUnique()
			assert.True(t, tt.Equal(again))
		})
	}
}

func TestZeroLengthAugmentationCoverage(t *testing.T) {
	spec := ir.JoinSpec{WordBytes: 2, Streams: []ir.StreamSpec{
		{ElementBytes: 1, LenMin: 0, LenMax: 2},
		{ElementBytes: 1, LenMin: 0, LenMax: 2},
	}}
	req, err := RequestFor(spec)
	require.NoError(t, err)

	substates, maxLookahead, err := BuildSubstates(req)
	require.NoError(t, err)
	tt, err := Synthesize(req)
	require.NoError(t, err)

	// every edge of state 1 appears in state 0 after stream 0 consumed an
	// empty frame
	shape := ir.Shape{WordBytes: 2, MaxLookahead: maxLookahead}
	relict := map[ir.StateLabel]bool{}
	found := 0
	for _, ss := range substates {
		tr := deriveTransition(req, shape, ss, relict)
		if tr.State != 1 {
			continue
		}
		clone := tr.Clone()
		clone.State = 0
		clone.ConsumeZeroLength(0)
		assert.True(t, containsEdge(tt.States[0], clone), "missing %s", clone.Repr())
		found++
	}
	assert.Positive(t, found)

	// all streams can be empty: the all-empty edge exists
	empty := ir.NewTransition(tt.Shape(), 0, 0, true)
	empty.ConsumeZeroLength(0)
	empty.ConsumeZeroLength(1)
	assert.True(t, containsEdge(tt.States[0], empty))
}

func TestZeroLengthPrefixStopsAtFirstNonEmptyStream(t *testing.T) {
	spec := ir.JoinSpec{WordBytes: 2, Streams: []ir.StreamSpec{
		{ElementBytes: 1, LenMin: 1, LenMax: 1},
		{ElementBytes: 1, LenMin: 0, LenMax: 1},
	}}
	tt, err := FromJoinSpec(spec)
	require.NoError(t, err)

	// stream 0 always has data, so no edge of state 0 consumes an empty
	// frame from it
	for _, tr := range tt.States[0] {
		assert.NotEqual(t, []ir.Tri{ir.Lo, ir.Lo}, tr.Input[0][0].Keep, tr.Repr())
	}
	assert.Equal(t, 0, Request{StreamCount: 2, CanBeZeroLen: []bool{false, true}}.zeroLenPrefix())
	assert.Equal(t, 1, Request{StreamCount: 3, CanBeZeroLen: []bool{true, false, true}}.zeroLenPrefix())
}

func TestSynthesizedTableRoundTripsThroughRepr(t *testing.T) {
	for _, tc := range joinCases {
		t.Run(tc.name, func(t *testing.T) {
			tt, err := FromJoinSpec(tc.spec)
			require.NoError(t, err)
			for _, edges := range tt.States {
				for _, tr := range edges {
					back, err := ir.ParseTransition(tr.Repr())
					require.NoError(t, err)
					assert.True(t, tr.Equal(back), tr.Repr())
				}
			}
		})
	}
}

func TestSynthesizerLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(logger).FromJoinSpec(joinCases[0].spec)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "table synthesized")
	assert.Contains(t, buf.String(), "transitions=1")
}

func TestFromJoinSpecRejectsBadGeometry(t *testing.T) {
	_, err := FromJoinSpec(ir.JoinSpec{Name: "bad", WordBytes: 2, OutOffset: 3,
		Streams: []ir.StreamSpec{{ElementBytes: 1, LenMin: 1, LenMax: 1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func containsEdge(edges []*ir.Transition, t *ir.Transition) bool {
	for _, e := range edges {
		if e.Equal(t) {
			return true
		}
	}
	return false
}
