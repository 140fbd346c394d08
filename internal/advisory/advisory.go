// Package advisory sends the completed test scores to an external advice
// service and returns its free-text reply.
package advisory

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every transport or service failure.
var ErrUnavailable = errors.New("advisory unavailable")

// #region types
// Request carries the three headline numbers of a completed session.
type Request struct {
	Score      float64 `json:"score"`
	Errors     int     `json:"errors"`
	Similarity float64 `json:"similarity"`
}

// Response is the service reply.
type Response struct {
	Advice string `json:"advice"`
}

// Client issues one advice request. Implementations must honour ctx.
type Client interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// #endregion types
