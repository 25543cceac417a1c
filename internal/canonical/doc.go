// Package canonical provides the JSON value tree used for envelope
// capabilities and the RFC 8785 canonical encoder that makes envelope
// serialization and hashing deterministic.
//
// The package imports nothing internal. Every other package that needs a
// stable byte representation of structured data goes through Marshal.
//
// Key constraints:
//   - Object keys are emitted in UTF-16 code unit order
//   - Strings are NFC normalized at the serialization boundary
//   - Numbers use the ECMAScript shortest round-trip form
//   - NaN and infinities are not representable
package canonical
