package pipeline

import (
	"errors"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgallion1/doxnav/internal/navtree"
)

// IsRetryable reports whether a site load failure may clear up on its own.
// The generator rewrites scripts in place, so a load can observe a missing
// or truncated file.
func IsRetryable(err error) bool {
	var syntaxErr *navtree.SyntaxError
	return errors.As(err, &syntaxErr) || errors.Is(err, fs.ErrNotExist)
}

// NewLoadBackOff returns the delay policy between site load attempts:
// doubling from 500ms up to 10s, each delay jittered by half.
func NewLoadBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.Reset()
	return b
}

const MaxRetries = 3
