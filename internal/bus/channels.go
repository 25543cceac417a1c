package bus

import "fmt"

// InboxChannel returns the Pub/Sub channel a peer listens on.
// Format: umicp:{namespace}:inbox:{peer}
func InboxChannel(namespace, peer string) string {
	return fmt.Sprintf("umicp:%s:inbox:%s", namespace, peer)
}

// BroadcastChannel returns the namespace-wide channel used when an
// envelope is addressed to "*".
func BroadcastChannel(namespace string) string {
	return fmt.Sprintf("umicp:%s:broadcast", namespace)
}

// Broadcast is the recipient that publishes to every subscriber in a namespace.
const Broadcast = "*"

func targetChannel(namespace, to string) string {
	if to == Broadcast {
		return BroadcastChannel(namespace)
	}
	return InboxChannel(namespace, to)
}
