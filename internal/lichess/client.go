package lichess

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/pgn"
)

// DefaultBaseURL is the public lichess site.
const DefaultBaseURL = "https://lichess.org"

// maxPGNBytes bounds a single exported game.
const maxPGNBytes = 1 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Default().WithPrefix("lichess"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch downloads one game as PGN with clock comments. The identifier is
// validated before any request is made.
func (c *Client) Fetch(ctx context.Context, idOrURL string) (string, error) {
	id, err := pgn.ExtractGameID(idOrURL)
	if err != nil {
		return "", err
	}

	log := logger.FromContext(ctx).WithPrefix("lichess").WithField("game_id", id)
	url := fmt.Sprintf("%s/game/export/%s?clocks=true&evals=false&literate=false", c.baseURL, id)

	log.Debug("fetching game from: %s", url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return "", err
	}
	req.Header.Set("Accept", "application/x-chess-pgn")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch game: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	log.Debug("game response received in %v, status=%d", time.Since(start), resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperrors.NewNotFoundError("game", id)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("game request failed: status=%d, body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("lichess status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPGNBytes))
	if err != nil {
		log.Error("failed to read game: %v", err)
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", apperrors.NewInputError("lichess returned an empty game for %s", id)
	}

	log.Info("fetched game %s (%d bytes)", id, len(text))
	return text, nil
}
