package state

import "github.com/amurg-ai/contenthub/pkg/protocol"

// The persisted collections. A schema change requires a fresh store.
var (
	// Hubs holds one record per creator, posts nested most recent first.
	Hubs = NewMap[protocol.Hub]("hubs")
	// HubAddresses lists creator identities, most recently registered first.
	HubAddresses = NewItem[[]string]("hub_addresses")
	// Subscriptions is keyed by (subscriber, hub creator).
	Subscriptions = NewPairMap[bool]("subscriptions")
	// PostLikes is the like counter keyed by post id.
	PostLikes = NewMap[uint64]("post_likes")
	// UserLikes is keyed by (user, post id).
	UserLikes = NewPairMap[bool]("user_likes")
	// Clock is the logical timestamp of the last committed exec.
	Clock = NewItem[uint64]("clock")
)
