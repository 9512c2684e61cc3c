package provider

import (
	"errors"
	"fmt"
)

// Listing and lookup failures every source maps its native errors onto.
// The browser and the HTTP layer only ever test against these.
var (
	ErrNotFound            = errors.New("no such blob or folder")
	ErrAccessDenied        = errors.New("access denied")
	ErrBucketNotFound      = errors.New("bucket does not exist")
	ErrInvalidCredentials  = errors.New("credentials rejected")
	ErrProviderUnavailable = errors.New("backend unavailable")
	ErrThrottled           = errors.New("backend is throttling requests")
)

// ProviderError records which source call failed and where.
//
// Err holds one of the sentinels above when the failure could be
// classified, otherwise the backend's own error.
type ProviderError struct {
	Op       string
	Provider ProviderType
	Bucket   string
	// Key is the object key or blob path the call was about.
	Key string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.where(), e.Err)
}

// where renders "Op bucket:key", dropping the parts that are unset.
func (e *ProviderError) where() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return e.Op + " " + e.Bucket + ":" + e.Key
	case e.Bucket != "":
		return e.Op + " " + e.Bucket
	case e.Key != "":
		return e.Op + " " + e.Key
	}
	return e.Op
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound covers a missing blob, folder or bucket.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBucketNotFound)
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
