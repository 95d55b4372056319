// Package harness runs end-to-end scenarios through the whole pipeline:
// raw solver output, schedule, STRIPS encoding, forced plan, decoded
// actions, behavior description and a simulated run against an in-memory
// knowledge base.
//
// # Scenario Format
//
//	name: two_jobs
//	description: "What this scenario checks"
//	run_id: run-two-jobs          # optional, fixed run id
//	fail: [close_gripper]         # optional, capabilities that fail
//	solution: |
//	  Sijk[j_1,op_1,R] 5
//	  Cijk[j_1,op_1,R] 12
//	  Xijk[j_1,op_1,R] 1
//	capabilities:
//	  j_1: {OP11: [pick, place]}
//	expect:
//	  operations: 1
//	  steps: [OP11]
//	  goal: "(place_op11_done)"
//	  plan: [move_to, pick, place]
//	  guards: [succeeded, succeeded, succeeded]
//	  status: success
//	  final_facts: ["(place_op11_done)", ...]
//	  error: ""                   # substring of an expected pipeline error
//
// Every expect field is optional; only the fields present are checked.
//
// # Deterministic Testing
//
// Each scenario runs against a fresh ":memory:" store with a fixed run id
// and testutil.DeterministicClock, so effect logs are byte-identical across
// runs and can be compared with golden files (RunWithGolden).
package harness
