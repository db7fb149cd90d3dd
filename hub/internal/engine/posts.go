package engine

import (
	"context"
	"strconv"

	"github.com/amurg-ai/contenthub/hub/internal/state"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// CreatePost publishes a post at the front of creator's hub and starts its
// like counter at zero. Post ids are unique across all hubs.
func CreatePost(ctx context.Context, kv store.KV, creator, postID, title, content string, timestamp uint64) (Response, error) {
	hub, err := GetHub(ctx, kv, creator)
	if err != nil {
		return Response{}, err
	}

	exists, err := state.PostLikes.Has(ctx, kv, postID)
	if err != nil {
		return Response{}, storageErr("load post likes", err)
	}
	if exists {
		return Response{}, &PostError{Kind: ErrPostAlreadyExists, PostID: postID}
	}

	post := protocol.Post{
		ID:          postID,
		Title:       title,
		Content:     content,
		LastUpdated: timestamp,
	}
	hub.Posts = append([]protocol.Post{post}, hub.Posts...)
	if err := state.Hubs.Save(ctx, kv, creator, hub); err != nil {
		return Response{}, storageErr("save hub", err)
	}
	if err := state.PostLikes.Save(ctx, kv, postID, 0); err != nil {
		return Response{}, storageErr("save post likes", err)
	}

	return newResponse(protocol.TypeCreatePost,
		"creator", creator,
		"post_id", postID,
	), nil
}

// LikePost adds user's single like to postID.
func LikePost(ctx context.Context, kv store.KV, user, postID string) (Response, error) {
	likes, err := GetLikes(ctx, kv, postID)
	if err != nil {
		return Response{}, err
	}

	liked, err := HasLiked(ctx, kv, user, postID)
	if err != nil {
		return Response{}, err
	}
	if liked {
		return Response{}, &PostError{Kind: ErrPostAlreadyLiked, PostID: postID}
	}

	likes++
	if err := state.PostLikes.Save(ctx, kv, postID, likes); err != nil {
		return Response{}, storageErr("save post likes", err)
	}
	if err := state.UserLikes.Save(ctx, kv, user, postID, true); err != nil {
		return Response{}, storageErr("save user like", err)
	}

	return newResponse(protocol.TypeLikePost,
		"user", user,
		"post_id", postID,
		"likes", strconv.FormatUint(likes, 10),
	), nil
}

// GetLikes returns the like counter of postID.
func GetLikes(ctx context.Context, kv store.KV, postID string) (uint64, error) {
	likes, ok, err := state.PostLikes.Load(ctx, kv, postID)
	if err != nil {
		return 0, storageErr("load post likes", err)
	}
	if !ok {
		return 0, &PostError{Kind: ErrPostNotFound, PostID: postID}
	}
	return likes, nil
}

// HasLiked reports whether user has liked postID.
func HasLiked(ctx context.Context, kv store.KV, user, postID string) (bool, error) {
	ok, err := state.UserLikes.Has(ctx, kv, user, postID)
	if err != nil {
		return false, storageErr("load user like", err)
	}
	return ok, nil
}
