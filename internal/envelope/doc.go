// Package envelope implements the UMICP control message: sender, recipient,
// operation kind, message identifier, and a capability tree, together with
// its canonical JSON form and content hash.
//
// Serialization is RFC 8785 canonical JSON (see package canonical) over
// exactly five keys, emitted in this order:
//
//	{"capabilities":{...},"from":"...","messageId":"...","operation":4,"to":"..."}
//
// The operation is written as its integer wire code, or null when unset.
// Unset strings are written as "" and unset capabilities as {}. There is no
// insignificant whitespace. Hash is the lowercase hex SHA-256 of those bytes,
// so two envelopes hash equal exactly when they serialize equal.
//
// An Envelope is a plain value owned by its creator. It performs no locking;
// callers that share one across goroutines must synchronize mutation.
package envelope
