package engine

import (
	"context"
	"errors"

	"github.com/amurg-ai/contenthub/hub/internal/state"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// UserSubscriptions returns the names of the hubs user is subscribed to,
// windowed over the ledger's ascending hub order. Entries whose hub cannot
// be resolved are dropped.
func UserSubscriptions(ctx context.Context, kv store.KV, user string, page, size uint64) ([]string, error) {
	hubIDs, err := state.Subscriptions.Seconds(ctx, kv, user)
	if err != nil {
		return nil, storageErr("list subscriptions", err)
	}

	names := []string{}
	for _, id := range Paginate(hubIDs, page, size) {
		hub, ok, err := state.Hubs.Load(ctx, kv, id)
		if errors.Is(err, state.ErrCorrupt) || (err == nil && !ok) {
			continue
		}
		if err != nil {
			return nil, storageErr("load hub", err)
		}
		names = append(names, hub.Name)
	}
	return names, nil
}

// HubPosts returns the posts of hubID visible to user, most recent first.
// Subscribers get the requested window. Everyone else gets the single most
// recent post whatever the window. A missing hub yields no posts.
func HubPosts(ctx context.Context, kv store.KV, user, hubID string, page, size uint64) ([]protocol.Post, error) {
	hub, err := GetHub(ctx, kv, hubID)
	if errors.Is(err, ErrHubNotFound) {
		return []protocol.Post{}, nil
	}
	if err != nil {
		return nil, err
	}

	subscribed, err := IsSubscribed(ctx, kv, user, hubID)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return Paginate(hub.Posts, page, size), nil
	}
	if len(hub.Posts) == 0 {
		return []protocol.Post{}, nil
	}
	return hub.Posts[:1:1], nil
}
