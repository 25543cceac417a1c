// Package bus carries envelopes between peers over Redis Pub/Sub.
//
// Every peer listens on its own inbox channel inside a namespace:
//
//	umicp:{namespace}:inbox:{peer}
//
// Publish sends the canonical serialization of an envelope to the inbox
// named by its "to" field. Delivery is at-most-once, as with any Redis
// Pub/Sub channel; durable history belongs in the store package.
package bus
