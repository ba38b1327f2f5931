package lichess

import "context"

// ClientInterface is the game source used by services.
type ClientInterface interface {
	Fetch(ctx context.Context, idOrURL string) (string, error)
}

var _ ClientInterface = (*Client)(nil)
