// Package kvstore is the string-keyed key-value storage used for per-installation state
// (session record, device identity, preferences). Values are strings; numbers, booleans and JSON
// blobs are encoded on top of them.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrCorrupt is wrapped by StorageError when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt value")

// StorageError reports a failed storage operation. Err is the backend error or ErrCorrupt.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("kvstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kvstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Backend is the raw string storage a Store is built on.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by the backend.
	Clear(ctx context.Context) error
}

// Store exposes typed accessors over a Backend. Every backend failure is returned as *StorageError.
type Store struct {
	backend Backend
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// GetString returns the string stored under key.
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", false, &StorageError{Op: "get", Key: key, Err: err}
	}
	return v, ok, nil
}

// SetString stores value under key.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// GetNumber returns the number stored under key. A value that does not parse is ErrCorrupt.
func (s *Store) GetNumber(ctx context.Context, key string) (float64, bool, error) {
	v, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, &StorageError{Op: "get", Key: key, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return n, true, nil
}

// SetNumber stores n under key.
func (s *Store) SetNumber(ctx context.Context, key string, n float64) error {
	return s.SetString(ctx, key, strconv.FormatFloat(n, 'f', -1, 64))
}

// GetBoolean returns the boolean stored under key. Anything other than "true" or "false" reads as absent.
func (s *Store) GetBoolean(ctx context.Context, key string) (bool, bool, error) {
	v, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return false, false, err
	}
	switch v {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	}
	return false, false, nil
}

// SetBoolean stores b under key.
func (s *Store) SetBoolean(ctx context.Context, key string, b bool) error {
	return s.SetString(ctx, key, strconv.FormatBool(b))
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// ClearAll removes every key.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	return nil
}

// GetJSON decodes the JSON blob under key into v. A blob that does not decode is ErrCorrupt;
// callers that degrade to empty check errors.Is(err, ErrCorrupt).
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, &StorageError{Op: "decode", Key: key, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	return s.SetString(ctx, key, string(b))
}
