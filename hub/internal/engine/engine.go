// Package engine implements the content hub state transitions: hub
// registration, fee-gated subscriptions, posts, likes, and the read
// projections over them.
//
// Every operation takes the store.KV of the surrounding transaction and
// neither commits nor rolls back. A failed exec leaves partial writes in the
// transaction; the caller must discard them.
package engine

import (
	"context"
	"fmt"

	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// Env is supplied by the host for each exec call.
type Env struct {
	Time uint64 // logical timestamp, nanoseconds
}

// Info identifies the caller of an exec and the funds it attached.
type Info struct {
	Sender string
	Funds  []protocol.Coin
}

// Response describes an applied exec command.
type Response struct {
	Action     string
	Attributes []protocol.Attribute
}

func newResponse(action string, kvs ...string) Response {
	r := Response{Action: action}
	for i := 0; i+1 < len(kvs); i += 2 {
		r.Attributes = append(r.Attributes, protocol.Attribute{Key: kvs[i], Value: kvs[i+1]})
	}
	return r
}

// Attr returns the value of the first attribute named key.
func (r Response) Attr(key string) string {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Execute applies one exec command on behalf of info.Sender.
func Execute(ctx context.Context, kv store.KV, env Env, info Info, cmd protocol.Command) (Response, error) {
	switch c := cmd.(type) {
	case protocol.CreateHub:
		return CreateHub(ctx, kv, info.Sender, c.Name, c.Price)
	case protocol.SubscribeToHub:
		return Subscribe(ctx, kv, info.Sender, c.HubID, info.Funds)
	case protocol.CreatePost:
		return CreatePost(ctx, kv, info.Sender, c.PostID, c.Title, c.Content, env.Time)
	case protocol.LikePost:
		return LikePost(ctx, kv, info.Sender, c.PostID)
	default:
		return Response{}, fmt.Errorf("%w: %T", protocol.ErrUnknownType, cmd)
	}
}

// Query answers one read-only query. The result is ready for JSON encoding.
func Query(ctx context.Context, kv store.KV, q protocol.Query) (any, error) {
	switch q := q.(type) {
	case protocol.HubQuery:
		return GetHub(ctx, kv, q.Creator)
	case protocol.UserHasHubQuery:
		return HasHub(ctx, kv, q.Creator)
	case protocol.UserSubscriptionsQuery:
		return UserSubscriptions(ctx, kv, q.User, q.Page, q.Size)
	case protocol.HubAddressesQuery:
		return ListHubAddresses(ctx, kv, q.Page, q.Size)
	case protocol.HubPostsQuery:
		return HubPosts(ctx, kv, q.User, q.HubID, q.Page, q.Size)
	case protocol.PostLikesQuery:
		return GetLikes(ctx, kv, q.PostID)
	case protocol.UserPostLikedQuery:
		return HasLiked(ctx, kv, q.User, q.PostID)
	default:
		return nil, fmt.Errorf("%w: %T", protocol.ErrUnknownType, q)
	}
}
