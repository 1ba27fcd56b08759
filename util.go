package gateway

import (
	"hash/fnv"

	"github.com/khlpkg/gateway/encoding"
)

// RoutingKey returns the id that orders a DATA envelope relative to others: the guild for
// group messages and guild system events, the target for everything else.
func RoutingKey(envelope *Envelope) string {
	if guildID := encoding.Get(envelope.Data, "extra", "guild_id").ToString(); guildID != "" {
		return guildID
	}
	return encoding.Get(envelope.Data, "target_id").ToString()
}

// DeriveQueue maps a routing key onto one of n queues. Equal keys always share a queue.
func DeriveQueue(routingKey string, queues int) int {
	if queues <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(routingKey))
	return int(h.Sum32() % uint32(queues))
}
