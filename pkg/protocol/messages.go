// Package protocol defines the wire messages exchanged with the content hub:
// exec commands, queries, and the records they return.
//
// All messages are JSON-encoded and share a common envelope with a "type" field
// that determines the payload structure.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a request names a type this protocol does not define.
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidPayload is returned when a payload does not decode into its type.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Request is the envelope for exec commands and queries.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ExecRequest is an exec command plus the payment attached to the call.
// The caller identity is never part of the payload; the host supplies it.
type ExecRequest struct {
	Request
	Funds []Coin `json:"funds,omitempty"`
}

// --- Message type constants ---

const (
	// Exec commands
	TypeCreateHub      = "create_hub"
	TypeSubscribeToHub = "subscribe_to_hub"
	TypeCreatePost     = "create_post"
	TypeLikePost       = "like_post"

	// Queries
	TypeHub               = "hub"
	TypeUserHasHub        = "user_has_hub"
	TypeUserSubscriptions = "user_subscriptions"
	TypeHubAddresses      = "hub_addresses"
	TypeHubPosts          = "hub_posts"
	TypePostLikes         = "post_likes"
	TypeUserPostLiked     = "user_post_liked"
)

// Command is implemented by every exec payload.
type Command interface {
	CommandType() string
}

// Query is implemented by every query payload.
type Query interface {
	QueryType() string
}

// --- Exec commands ---

// CreateHub registers a hub owned by the caller.
type CreateHub struct {
	Name  string `json:"name"`
	Price Coin   `json:"price"`
}

// SubscribeToHub subscribes the caller to the hub owned by HubID.
type SubscribeToHub struct {
	HubID string `json:"hub_id"`
}

// CreatePost publishes a post to the caller's hub.
type CreatePost struct {
	PostID  string `json:"post_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// LikePost records the caller's like of a post.
type LikePost struct {
	PostID string `json:"post_id"`
}

func (CreateHub) CommandType() string      { return TypeCreateHub }
func (SubscribeToHub) CommandType() string { return TypeSubscribeToHub }
func (CreatePost) CommandType() string     { return TypeCreatePost }
func (LikePost) CommandType() string       { return TypeLikePost }

// --- Queries ---

// HubQuery looks up the hub owned by Creator.
type HubQuery struct {
	Creator string `json:"creator"`
}

// UserHasHubQuery reports whether Creator owns a hub.
type UserHasHubQuery struct {
	Creator string `json:"creator"`
}

// UserSubscriptionsQuery lists the names of hubs User is subscribed to.
type UserSubscriptionsQuery struct {
	User string `json:"user"`
	Page uint64 `json:"page"`
	Size uint64 `json:"size"`
}

// HubAddressesQuery lists registered hub identities, most recent first.
type HubAddressesQuery struct {
	Page uint64 `json:"page"`
	Size uint64 `json:"size"`
}

// HubPostsQuery lists the posts of HubID visible to User.
type HubPostsQuery struct {
	User  string `json:"user"`
	HubID string `json:"hub_id"`
	Page  uint64 `json:"page"`
	Size  uint64 `json:"size"`
}

// PostLikesQuery returns the like counter of a post.
type PostLikesQuery struct {
	PostID string `json:"post_id"`
}

// UserPostLikedQuery reports whether User has liked PostID.
type UserPostLikedQuery struct {
	User   string `json:"user"`
	PostID string `json:"post_id"`
}

func (HubQuery) QueryType() string               { return TypeHub }
func (UserHasHubQuery) QueryType() string        { return TypeUserHasHub }
func (UserSubscriptionsQuery) QueryType() string { return TypeUserSubscriptions }
func (HubAddressesQuery) QueryType() string      { return TypeHubAddresses }
func (HubPostsQuery) QueryType() string          { return TypeHubPosts }
func (PostLikesQuery) QueryType() string         { return TypePostLikes }
func (UserPostLikedQuery) QueryType() string     { return TypeUserPostLiked }

// --- Records ---

// Hub is a content channel owned by one creator identity.
type Hub struct {
	Creator     string   `json:"creator"`
	Name        string   `json:"name"`
	Price       Coin     `json:"price"`
	Subscribers []string `json:"subscribers"`
	Posts       []Post   `json:"posts"` // most recent first
}

// Post is an immutable content item published by a hub's creator.
type Post struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	LastUpdated uint64 `json:"last_updated,string"` // logical timestamp, nanoseconds
}

// Attribute is a key/value pair describing an applied exec command.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExecResult is returned to the caller after an exec command commits.
type ExecResult struct {
	ID         string      `json:"id"`
	Timestamp  uint64      `json:"timestamp,string"`
	Action     string      `json:"action"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// ErrorResponse carries an error back to a client.
type ErrorResponse struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"error"`
}

// --- Encoding ---

// EncodeCommand wraps an exec payload in its envelope.
func EncodeCommand(c Command) (Request, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s: %w", c.CommandType(), err)
	}
	return Request{Type: c.CommandType(), Payload: data}, nil
}

// EncodeQuery wraps a query payload in its envelope.
func EncodeQuery(q Query) (Request, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s: %w", q.QueryType(), err)
	}
	return Request{Type: q.QueryType(), Payload: data}, nil
}

// DecodeCommand resolves an envelope to its exec payload.
func DecodeCommand(r Request) (Command, error) {
	switch r.Type {
	case TypeCreateHub:
		return decodeAs[CreateHub](r)
	case TypeSubscribeToHub:
		return decodeAs[SubscribeToHub](r)
	case TypeCreatePost:
		return decodeAs[CreatePost](r)
	case TypeLikePost:
		return decodeAs[LikePost](r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
}

// DecodeQuery resolves an envelope to its query payload.
func DecodeQuery(r Request) (Query, error) {
	switch r.Type {
	case TypeHub:
		return decodeAs[HubQuery](r)
	case TypeUserHasHub:
		return decodeAs[UserHasHubQuery](r)
	case TypeUserSubscriptions:
		return decodeAs[UserSubscriptionsQuery](r)
	case TypeHubAddresses:
		return decodeAs[HubAddressesQuery](r)
	case TypeHubPosts:
		return decodeAs[HubPostsQuery](r)
	case TypePostLikes:
		return decodeAs[PostLikesQuery](r)
	case TypeUserPostLiked:
		return decodeAs[UserPostLikedQuery](r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
}

// decodeAs strictly decodes the payload; unknown fields are rejected.
func decodeAs[T any](r Request) (T, error) {
	var v T
	payload := r.Payload
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: decode %s payload: %v", ErrInvalidPayload, r.Type, err)
	}
	return v, nil
}
