package invoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmalone87/gatepipe/state"
)

// defaultValidationRetries is the number of validation-driven reissues
// beyond the first attempt.
const defaultValidationRetries = 1

// Config is the invocation configuration, typically produced by the
// config layer. Exactly one transport is used per call: the direct
// endpoint when configured, otherwise the router endpoint.
type Config struct {
	// DirectURL invokes the callee with the raw call payload.
	DirectURL string

	// RouterURL invokes the callee through a {tool, action, args} envelope.
	RouterURL string

	// BearerToken, when set, is sent as the Authorization bearer credential.
	BearerToken string

	// SchemaVersion is the logical payload schema version and participates
	// in cache keys.
	SchemaVersion string

	// MaxValidationRetries bounds validation-driven reissues beyond the
	// first attempt. Zero means the default of 1; negative disables retry.
	MaxValidationRetries int

	// Refresh bypasses both lookup tiers for every call.
	Refresh bool

	// DisableCache skips the content cache for every call.
	DisableCache bool
}

// Client performs validated invocations. A nil store disables both
// persistence tiers; lookups and writes are skipped.
type Client struct {
	cfg    Config
	store  state.Store
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a client. httpClient and logger may be nil; store may
// be nil to run without persistence.
func NewClient(cfg Config, store state.Store, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, store: store, http: httpClient, logger: logger}
}

// Do performs the call described by req: lookup tiers first, then the
// transport with bounded validation retry. The first valid result is
// persisted to run-state (when a run key is set) and to the cache (unless
// disabled) before it is returned.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	key, err := req.cacheKey(c.cfg.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("invoke: derive cache key: %w", err)
	}

	refresh := req.Refresh || c.cfg.Refresh
	noCache := req.DisableCache || c.cfg.DisableCache

	if c.store != nil && !refresh {
		if res, err := c.lookup(ctx, req.RunKey, key, noCache); err != nil {
			return nil, err
		} else if res != nil {
			return res, nil
		}
	}

	t, err := c.transport()
	if err != nil {
		return nil, err
	}

	res, err := c.callWithValidation(ctx, t, req)
	if err != nil {
		return nil, err
	}
	if err := c.persist(ctx, req, key, res, noCache); err != nil {
		return nil, err
	}
	return res, nil
}

// lookup consults run-state then cache. A run record is reused only when
// its stored cache key equals the freshly derived one; a mismatch means
// the caller reuses a run key for a different logical request, and the
// record is ignored.
func (c *Client) lookup(ctx context.Context, runKey, key string, noCache bool) (*Result, error) {
	if runKey != "" {
		rec, err := c.store.GetRun(ctx, runKey)
		switch {
		case err == nil && rec.CacheKey == key:
			c.logger.Debug("invoke served from run state", "run_key", runKey)
			return resultFromItems(rec.Items, ProvenanceRunState)
		case err == nil:
			c.logger.Warn("run state cache key mismatch, ignoring record", "run_key", runKey)
		case !errors.Is(err, state.ErrNotFound):
			return nil, fmt.Errorf("invoke: run state lookup: %w", err)
		}
	}
	if !noCache {
		entry, err := c.store.GetCache(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug("invoke served from cache", "cache_key", key)
			return resultFromItems(entry.Items, ProvenanceCache)
		case !errors.Is(err, state.ErrNotFound):
			return nil, fmt.Errorf("invoke: cache lookup: %w", err)
		}
	}
	return nil, nil
}

// callWithValidation issues the call and, when an output contract is set,
// reissues on validation failure with retry context, up to the bound.
// Transport, envelope, and remote errors fail immediately; only contract
// violations drive the retry loop, strictly sequentially.
func (c *Client) callWithValidation(ctx context.Context, t transport, req Request) (*Result, error) {
	retries := c.validationRetries(req)
	var lastErrors []string
	attempts := 0
	for attempt := 1; attempt <= retries+1; attempt++ {
		attempts = attempt
		obj, err := t.invoke(ctx, req.payload(c.cfg.SchemaVersion, attempt, lastErrors))
		if err != nil {
			return nil, err
		}
		res := normalizeResult(obj, attempt)
		if req.OutputSchema == nil {
			return res, nil
		}
		msgs, err := validateOutput(req.OutputSchema, res.structured())
		if err != nil {
			return nil, err
		}
		if msgs == nil {
			return res, nil
		}
		lastErrors = msgs
		c.logger.Warn("output contract validation failed",
			"attempt", attempt, "remaining", retries+1-attempt, "errors", msgs)
	}
	return nil, &SchemaValidationError{Attempts: attempts, Errors: lastErrors}
}

// persist writes the result to both tiers. Persistence is part of the
// success path: a write failure fails the call.
func (c *Client) persist(ctx context.Context, req Request, key string, res *Result, noCache bool) error {
	if c.store == nil {
		return nil
	}
	items, err := res.asItems()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if req.RunKey != "" {
		rec := &state.RunRecord{
			Key:      req.RunKey,
			CacheKey: key,
			Items:    items,
			Version:  c.cfg.SchemaVersion,
			StoredAt: now,
		}
		if err := c.store.PutRun(ctx, rec); err != nil {
			return fmt.Errorf("invoke: persist run state: %w", err)
		}
	}
	if !noCache {
		entry := &state.CacheEntry{CacheKey: key, Items: items, StoredAt: now}
		if err := c.store.PutCache(ctx, entry); err != nil {
			return fmt.Errorf("invoke: persist cache entry: %w", err)
		}
	}
	return nil
}

func (c *Client) validationRetries(req Request) int {
	retries := c.cfg.MaxValidationRetries
	if req.MaxValidationRetries != nil {
		retries = *req.MaxValidationRetries
	}
	if retries == 0 {
		return defaultValidationRetries
	}
	if retries < 0 {
		return 0
	}
	return retries
}

func (c *Client) transport() (transport, error) {
	switch {
	case c.cfg.DirectURL != "":
		return &directTransport{url: c.cfg.DirectURL, bearer: c.cfg.BearerToken, client: c.http}, nil
	case c.cfg.RouterURL != "":
		return &routerTransport{url: c.cfg.RouterURL, bearer: c.cfg.BearerToken, client: c.http}, nil
	default:
		return nil, &ConfigError{Reason: "no transport endpoint configured"}
	}
}
