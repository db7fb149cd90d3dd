// Package state lays out the content hub's persisted collections over a
// store.KV. Keys are encoded so that byte order matches component order:
//
//	len(namespace) | namespace | len(k1) | k1 | ... | kN
//
// Every length is a 2-byte big-endian prefix. The last component is written
// raw, which keeps all entries sharing the leading components contiguous and
// iterable by prefix.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrKeyTooLong is returned when a non-final key component does not fit its
// 2-byte length prefix.
var ErrKeyTooLong = errors.New("key component too long")

// Key encodes namespace and parts into a single order-preserving key.
func Key(namespace string, parts ...string) ([]byte, error) {
	if len(parts) == 0 {
		return Prefix(namespace)
	}
	k, err := Prefix(namespace, parts[:len(parts)-1]...)
	if err != nil {
		return nil, err
	}
	return append(k, parts[len(parts)-1]...), nil
}

// Prefix encodes namespace and the leading parts of a composite key, each
// length-prefixed. Every key whose leading components equal parts starts with
// the returned bytes.
func Prefix(namespace string, parts ...string) ([]byte, error) {
	size := 2 + len(namespace)
	for _, p := range parts {
		size += 2 + len(p)
	}
	k := make([]byte, 0, size)
	var err error
	if k, err = appendLengthPrefixed(k, namespace); err != nil {
		return nil, err
	}
	for _, p := range parts {
		if k, err = appendLengthPrefixed(k, p); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// SplitLast returns the raw last component of a key that begins with prefix.
func SplitLast(prefix, key []byte) (string, error) {
	if !bytes.HasPrefix(key, prefix) {
		return "", fmt.Errorf("key %x outside prefix %x", key, prefix)
	}
	return string(key[len(prefix):]), nil
}

func appendLengthPrefixed(dst []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(s))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...), nil
}
