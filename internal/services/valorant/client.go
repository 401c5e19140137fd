package valorant

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"traking-shop/internal/backoff"
	"traking-shop/internal/models"
)

const (
	weaponsPath = "/v1/weapons"
	tiersPath   = "/v1/contenttiers"

	DefaultWeaponsTimeout = 45 * time.Second
	DefaultTiersTimeout   = 30 * time.Second
)

// Client reads the public Valorant game-data API
type Client struct {
	baseURL        string
	client         *resty.Client
	tiers          *TierCache
	policy         backoff.Policy
	weaponsTimeout time.Duration
	tiersTimeout   time.Duration
}

type Option func(*Client)

// WithTierCache shares a tier cache between clients or lets tests reset it
func WithTierCache(cache *TierCache) Option {
	return func(c *Client) { c.tiers = cache }
}

func WithRetryPolicy(p backoff.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithTimeouts(tiers, weapons time.Duration) Option {
	return func(c *Client) {
		c.tiersTimeout = tiers
		c.weaponsTimeout = weapons
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.client.SetHeader("User-Agent", ua) }
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := resty.New()
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "Traking.shop/1.0")

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		tiers:          NewTierCache(0),
		policy:         backoff.DefaultPolicy,
		weaponsTimeout: DefaultWeaponsTimeout,
		tiersTimeout:   DefaultTiersTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TierCache exposes the client's tier cache
func (c *Client) TierCache() *TierCache {
	return c.tiers
}

// FetchWeapons downloads every weapon with its skins. It is never cached.
func (c *Client) FetchWeapons(ctx context.Context) ([]models.CatalogWeapon, error) {
	return backoff.Retry(ctx, c.policy, "fetch weapons", func() ([]models.CatalogWeapon, error) {
		body, err := c.get(ctx, weaponsPath, c.weaponsTimeout)
		if err != nil {
			return nil, err
		}
		items, err := parseEnvelope(weaponsPath, body)
		if err != nil {
			return nil, err
		}
		weapons := parseWeapons(ctx, items)
		if len(weapons) == 0 {
			return nil, &InvalidResponseError{Endpoint: weaponsPath, Reason: "no valid weapons"}
		}
		log.Ctx(ctx).Info().Int("weapons", len(weapons)).Msg("fetched weapon catalog")
		return weapons, nil
	})
}

// FetchContentTiers returns tiers keyed by id, served from the cache after the first success.
func (c *Client) FetchContentTiers(ctx context.Context) (map[string]models.ContentTier, error) {
	if tiers, ok := c.tiers.Get(); ok {
		log.Ctx(ctx).Debug().Msg("using cached content tiers")
		return tiers, nil
	}

	tiers, err := backoff.Retry(ctx, c.policy, "fetch content tiers", func() (map[string]models.ContentTier, error) {
		body, err := c.get(ctx, tiersPath, c.tiersTimeout)
		if err != nil {
			return nil, err
		}
		items, err := parseEnvelope(tiersPath, body)
		if err != nil {
			return nil, err
		}
		tiers := parseTiers(ctx, items)
		if len(tiers) == 0 {
			return nil, &InvalidResponseError{Endpoint: tiersPath, Reason: "no valid content tiers"}
		}
		return tiers, nil
	})
	if err != nil {
		return nil, err
	}

	c.tiers.Set(tiers)
	log.Ctx(ctx).Info().Int("tiers", len(tiers)).Msg("fetched content tiers")
	return tiers, nil
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().SetContext(attemptCtx).Get(c.baseURL + path)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TransportError{Endpoint: path, Err: ErrTimeout}
		}
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &TransportError{Endpoint: path, StatusCode: resp.StatusCode(), Err: errors.New(resp.Status())}
	}
	return resp.Body(), nil
}
