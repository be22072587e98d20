package cluster

import "strings"

// ShardKey returns the routing key used to place a store key on the ring.
//
// Collective calls touch several related keys under one caller-supplied
// prefix (the prefix itself, "<prefix>/<rank>", "<prefix>/num_members", ...).
// If each of those keys were hashed independently they could land on
// different replica sets, and a linearizable Add on "<prefix>/num_members"
// would have no single owner to serialize against. Routing by the portion
// of the key before the first "/" keeps every key belonging to one
// collective call on the same replica set and, in particular, gives it one
// consistent owner node for Add.
func ShardKey(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return key
}
