// Package conformance runs language-neutral test vectors against the
// envelope, frame, and matrix packages.
//
// A suite is a YAML file with three optional case lists:
//
//	name: wire-basics
//	description: Canonical forms for the v1 wire encodings
//	envelopes:
//	  - name: request
//	    envelope: {from: alice, to: bob, operation: REQUEST, message_id: m1, capabilities: {v: 1}}
//	    expect: {canonical: '{"capabilities":{"v":1},...}', valid: true}
//	frames:
//	  - name: truncated
//	    hex: "0001"
//	    expect: {error: truncated}
//	matrix:
//	  - name: dot
//	    op: dot
//	    a: [1, 2, 3]
//	    b: [4, 5, 6]
//	    expect: {scalar: 32}
//
// Envelope cases either build an envelope from fields or decode raw JSON.
// Frame cases either encode fields or decode hex. Every expectation is
// optional; an omitted field is not checked.
//
// Run executes a suite and returns a Report. Report.Snapshot renders the
// observed outputs canonically so they can be pinned with golden files.
package conformance
