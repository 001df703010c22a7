// Package harness runs synthesis scenarios as executable contract tests.
//
// A scenario pairs a join configuration (or a raw routing request) with the
// transition table it must synthesize to. The runner synthesizes, compares
// state by state against the expected edges in repr form, and checks the
// table-level properties every synthesized table must have.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: one_byte_unaligned
//	description: "Single byte frames starting at output lane 1"
//	join:
//	  word_bytes: 2
//	  streams:
//	    - element_bytes: 1
//	      len_min: 1
//	      len_max: 1      # -1 for unbounded
//	      start_offsets: [1]
//	expect:
//	  - - '{st: "0->0", in: [[{keep: [0, 1], relict: 0, last: 1}]], ...}'
//	assertions:
//	  - type: state_count
//	    count: 1
//
// A scenario may give request instead of join to feed the synthesizer a
// routing directly:
//
//	request:
//	  word_bytes: 2
//	  routing:
//	    - - [{label: {frame: 0, word: 0}, time: 0, out_lane: 0, from_last_word: true}]
//	      - []
//	expect_error: routing_conflict
//
// expect_error is routing_conflict or non_deterministic. expect may be
// omitted when only assertions or a golden snapshot are wanted.
//
// # Assertion Types
//
//   - state_count: the table has exactly count states
//   - transition_count: state (or the whole table when state is omitted)
//     has exactly count edges
//   - contains: the edge given in repr form is present in state
//   - max_lookahead: the per-stream lookahead depths equal lookahead
//
// # Properties
//
// Every synthesized table is additionally checked for pairwise
// determinism within each state, deduplication idempotence, and, for join
// scenarios, that it survives a save and reload through the run cache
// unchanged. The cache is in-memory with sequential run IDs and a
// deterministic clock, so results are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/unaligned.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
