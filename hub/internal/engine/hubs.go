package engine

import (
	"context"

	"github.com/amurg-ai/contenthub/hub/internal/state"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// CreateHub registers a hub owned by creator and puts creator at the front
// of the hub index.
func CreateHub(ctx context.Context, kv store.KV, creator, name string, price protocol.Coin) (Response, error) {
	exists, err := state.Hubs.Has(ctx, kv, creator)
	if err != nil {
		return Response{}, storageErr("load hub", err)
	}
	if exists {
		return Response{}, ErrCreatorAlreadyHasHub
	}

	hub := protocol.Hub{
		Creator:     creator,
		Name:        name,
		Price:       price,
		Subscribers: []string{},
		Posts:       []protocol.Post{},
	}
	if err := state.Hubs.Save(ctx, kv, creator, hub); err != nil {
		return Response{}, storageErr("save hub", err)
	}

	addrs, _, err := state.HubAddresses.Load(ctx, kv)
	if err != nil {
		return Response{}, storageErr("load hub index", err)
	}
	addrs = append([]string{creator}, addrs...)
	if err := state.HubAddresses.Save(ctx, kv, addrs); err != nil {
		return Response{}, storageErr("save hub index", err)
	}

	return newResponse(protocol.TypeCreateHub,
		"creator", creator,
		"name", name,
		"price", price.String(),
	), nil
}

// GetHub returns the hub owned by creator.
func GetHub(ctx context.Context, kv store.KV, creator string) (protocol.Hub, error) {
	hub, ok, err := state.Hubs.Load(ctx, kv, creator)
	if err != nil {
		return protocol.Hub{}, storageErr("load hub", err)
	}
	if !ok {
		return protocol.Hub{}, ErrHubNotFound
	}
	if hub.Subscribers == nil {
		hub.Subscribers = []string{}
	}
	if hub.Posts == nil {
		hub.Posts = []protocol.Post{}
	}
	return hub, nil
}

// HasHub reports whether creator owns a hub.
func HasHub(ctx context.Context, kv store.KV, creator string) (bool, error) {
	ok, err := state.Hubs.Has(ctx, kv, creator)
	if err != nil {
		return false, storageErr("load hub", err)
	}
	return ok, nil
}

// ListHubAddresses pages through hub creators, most recently registered first.
func ListHubAddresses(ctx context.Context, kv store.KV, page, size uint64) ([]string, error) {
	addrs, _, err := state.HubAddresses.Load(ctx, kv)
	if err != nil {
		return nil, storageErr("load hub index", err)
	}
	return Paginate(addrs, page, size), nil
}
