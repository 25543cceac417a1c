// Package stream enforces the per-stream sequencing discipline on top of
// package frame and maps whole messages onto frame sequences.
//
// A Sequencer hands out strictly increasing sequence numbers per stream on
// the sending side. A Receiver checks arriving frames against the next
// expected sequence and decides, per Policy, whether each frame is
// delivered, ignored as a duplicate, held for reordering, or rejected.
// A Splitter chunks (and optionally compresses) a message into Data frames
// and an Assembler reverses that from an in-order frame feed.
//
// Duplicates are never errors; they are reported with VerdictDuplicate so
// callers can ack them idempotently.
package stream
