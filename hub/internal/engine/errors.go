package engine

import (
	"errors"
	"fmt"
)

// Error kinds returned by engine operations. Match them with errors.Is.
var (
	ErrCreatorAlreadyHasHub = errors.New("creator already has a hub")
	ErrHubNotFound          = errors.New("hub not found")
	ErrAlreadySubscribed    = errors.New("already subscribed")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrPostNotFound         = errors.New("post not found")
	ErrPostAlreadyExists    = errors.New("post already exists")
	ErrPostAlreadyLiked     = errors.New("post already liked")

	// ErrUnauthorized is reserved; no current operation returns it.
	ErrUnauthorized = errors.New("unauthorized")
)

// PostError attaches the offending post id to a post error kind.
type PostError struct {
	Kind   error
	PostID string
}

func (e *PostError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.PostID)
}

func (e *PostError) Unwrap() error { return e.Kind }

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

var kinds = []struct {
	err  error
	kind string
}{
	{ErrCreatorAlreadyHasHub, "creator_already_has_hub"},
	{ErrHubNotFound, "hub_not_found"},
	{ErrAlreadySubscribed, "already_subscribed"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrPostNotFound, "post_not_found"},
	{ErrPostAlreadyExists, "post_already_exists"},
	{ErrPostAlreadyLiked, "post_already_liked"},
	{ErrUnauthorized, "unauthorized"},
}

// Kind returns the stable name of err's kind, "storage" for store failures,
// or "" when err is not an engine error.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	var se *StorageError
	if errors.As(err, &se) {
		return "storage"
	}
	return ""
}
