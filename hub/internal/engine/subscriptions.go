package engine

import (
	"context"
	"strconv"

	"github.com/amurg-ai/contenthub/hub/internal/state"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// Subscribe records subscriber as a member of hubID. Of the attached funds
// only the first coin in the hub's price denomination counts; a priced hub
// rejects payments below its price. The ledger entry and the hub's
// subscriber list are written together.
func Subscribe(ctx context.Context, kv store.KV, subscriber, hubID string, funds []protocol.Coin) (Response, error) {
	hub, err := GetHub(ctx, kv, hubID)
	if err != nil {
		return Response{}, err
	}

	sent := protocol.AmountOf(funds, hub.Price.Denom)
	if !hub.Price.IsZero() && sent < hub.Price.Amount {
		return Response{}, ErrInsufficientFunds
	}

	subscribed, err := IsSubscribed(ctx, kv, subscriber, hubID)
	if err != nil {
		return Response{}, err
	}
	if subscribed {
		return Response{}, ErrAlreadySubscribed
	}

	if err := state.Subscriptions.Save(ctx, kv, subscriber, hubID, true); err != nil {
		return Response{}, storageErr("save subscription", err)
	}
	hub.Subscribers = append(hub.Subscribers, subscriber)
	if err := state.Hubs.Save(ctx, kv, hubID, hub); err != nil {
		return Response{}, storageErr("save hub", err)
	}

	return newResponse(protocol.TypeSubscribeToHub,
		"subscriber", subscriber,
		"hub", hubID,
		"paid", strconv.FormatUint(sent, 10)+hub.Price.Denom,
	), nil
}

// IsSubscribed reports whether subscriber holds a subscription to hubID.
// A missing hub is reported as not subscribed.
func IsSubscribed(ctx context.Context, kv store.KV, subscriber, hubID string) (bool, error) {
	ok, err := state.Subscriptions.Has(ctx, kv, subscriber, hubID)
	if err != nil {
		return false, storageErr("load subscription", err)
	}
	return ok, nil
}
