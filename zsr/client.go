// Package zsr interacts with ootrandomizer.com to generate seeds and to
// track the preset catalogs and build versions of the randomizer branches.
package zsr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrSourceUnavailable means a preset or version fetch failed; the
	// previously cached catalog stays in place.
	ErrSourceUnavailable = errors.New("preset source unavailable")
	// ErrUnknownPreset means the requested alias is not in the catalog.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrUnknownBranch means the requested branch key is not registered.
	ErrUnknownBranch = errors.New("unknown branch")
	// ErrRemoteService means the seed service returned a non-success
	// response or a malformed body.
	ErrRemoteService = errors.New("seed service error")
)

// DefaultBaseURL is the production seed service.
const DefaultBaseURL = "https://ootrandomizer.com"

// Client issues seed-creation, status, detail and password requests
// against the seed service, using per-branch version and preset data.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client

	branches map[string]*Branch
	order    []string

	passwordRetries int
	passwordDelay   time.Duration
}

// New creates a client for the production service with the default
// branch set.
func New(apiKey string) *Client {
	return NewWithBranches(apiKey, DefaultBaseURL, DefaultBranches())
}

// NewWithBranches creates a client against an explicit service base URL
// and branch set.
func NewWithBranches(apiKey, baseURL string, branches []*Branch) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		branches:        make(map[string]*Branch, len(branches)),
		passwordRetries: 3,
		passwordDelay:   2 * time.Second,
	}
	for _, branch := range branches {
		c.branches[branch.Key] = branch
		c.order = append(c.order, branch.Key)
	}
	return c
}

// Branch returns the branch registered under key.
func (c *Client) Branch(key string) (*Branch, bool) {
	branch, ok := c.branches[key]
	return branch, ok
}

// Branches returns all registered branches in registration order.
func (c *Client) Branches() []*Branch {
	branches := make([]*Branch, 0, len(c.order))
	for _, key := range c.order {
		branches = append(branches, c.branches[key])
	}
	return branches
}

// Resolve looks up a preset by branch key and alias.
func (c *Client) Resolve(branchKey, alias string) (Preset, bool) {
	branch, ok := c.branches[branchKey]
	if !ok {
		return Preset{}, false
	}
	return branch.Resolve(alias)
}

// Presets returns the catalog for a branch, or nil for an unknown branch.
func (c *Client) Presets(branchKey string) map[string]Preset {
	branch, ok := c.branches[branchKey]
	if !ok {
		return nil
	}
	return branch.Presets()
}

// SeedURL returns the public URL of a seed.
func (c *Client) SeedURL(seedID string) string {
	return fmt.Sprintf("%s/seed/get?id=%s", c.baseURL, seedID)
}

// LoadPresets fetches the branch's settings source and replaces its preset
// catalog. Every preset that declares at least one alias is registered
// under its shortest alias. On failure the previous catalog is kept.
func (c *Client) LoadPresets(ctx context.Context, branch *Branch) error {
	var doc map[string]json.RawMessage
	if err := c.getJSON(ctx, branch.SettingsURL, &doc); err != nil {
		return fmt.Errorf("%w: settings for %s: %v", ErrSourceUnavailable, branch.Key, err)
	}

	presets := make(map[string]Preset)
	for name, raw := range doc {
		var meta struct {
			Aliases []string `json:"aliases"`
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("%w: settings for %s: parsing preset %q: %v", ErrSourceUnavailable, branch.Key, name, err)
		}
		if len(meta.Aliases) == 0 {
			continue
		}
		presets[shortestAlias(meta.Aliases)] = Preset{
			FullName: name,
			Settings: raw,
		}
	}

	branch.setPresets(presets)
	return nil
}

// shortestAlias picks the shortest alias; on equal length the first
// encountered wins.
func shortestAlias(aliases []string) string {
	shortest := aliases[0]
	for _, alias := range aliases[1:] {
		if len(alias) < len(shortest) {
			shortest = alias
		}
	}
	return shortest
}

// RefreshVersion queries the service for the branch's currently active
// build version, updates the cache and reports whether it changed.
func (c *Client) RefreshVersion(ctx context.Context, branch *Branch) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/api/version?branch=%s", c.baseURL, url.QueryEscape(branch.TargetName))
	var data struct {
		CurrentlyActiveVersion string `json:"currentlyActiveVersion"`
	}
	if err := c.getJSON(ctx, endpoint, &data); err != nil {
		return "", false, fmt.Errorf("%w: version for %s: %v", ErrSourceUnavailable, branch.Key, err)
	}
	changed := branch.setVersion(data.CurrentlyActiveVersion)
	return data.CurrentlyActiveVersion, changed, nil
}

// RollSeed requests a new seed from the named branch and preset and
// returns the assigned seed id and its public URL. Dev-class branches are
// version-checked first; a version change reloads the preset catalog
// before rolling, so the catalog always matches the version the request
// names.
func (c *Client) RollSeed(ctx context.Context, branchKey, alias string, encrypt, password bool) (string, string, error) {
	branch, ok := c.branches[branchKey]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownBranch, branchKey)
	}
	dev := !branch.IsStable()

	if dev {
		previous := branch.Version()
		if _, changed, err := c.RefreshVersion(ctx, branch); err != nil {
			return "", "", err
		} else if changed {
			if err := c.LoadPresets(ctx, branch); err != nil {
				// Keep version and catalog a matched pair so the
				// next roll retries the reload.
				branch.setVersion(previous)
				return "", "", err
			}
		}
	}

	if len(branch.Presets()) == 0 {
		// Catalog is lazily fetched when startup preloading failed.
		if err := c.LoadPresets(ctx, branch); err != nil {
			return "", "", err
		}
	}

	preset, ok := branch.Resolve(alias)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownPreset, alias)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	// The service signals encryption differently per branch class: stable
	// seeds use encrypt, dev seeds use locked.
	if encrypt && !dev {
		params.Set("encrypt", "true")
	}
	if encrypt && dev {
		params.Set("locked", "true")
	}
	if password {
		params.Set("passwordLock", "true")
	}
	if dev {
		params.Set("version", branch.TargetName+"_"+branch.Version())
	}

	endpoint := fmt.Sprintf("%s/api/v2/seed/create?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(preset.Settings))
	if err != nil {
		return "", "", fmt.Errorf("%w: creating request: %v", ErrRemoteService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: seed create: %v", ErrRemoteService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("%w: seed create returned status %d", ErrRemoteService, resp.StatusCode)
	}

	var data struct {
		ID json.Number `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", "", fmt.Errorf("%w: decoding seed create response: %v", ErrRemoteService, err)
	}

	seedID := data.ID.String()
	return seedID, c.SeedURL(seedID), nil
}

// GetStatus returns the seed's generation status: 0 still generating,
// 1 ready, 2 or higher failed.
func (c *Client) GetStatus(ctx context.Context, seedID string) (int, error) {
	var data struct {
		Status int `json:"status"`
	}
	if err := c.getJSON(ctx, c.seedEndpoint("status", seedID), &data); err != nil {
		return 0, fmt.Errorf("%w: seed status: %v", ErrRemoteService, err)
	}
	return data.Status, nil
}

// GetHash fetches the seed's file hash as a space-joined token string.
// A missing or unparsable settings log is a soft miss and returns empty
// without an error, since hash display is cosmetic.
func (c *Client) GetHash(ctx context.Context, seedID string) (string, error) {
	var data struct {
		SettingsLog string `json:"settingsLog"`
	}
	if err := c.getJSON(ctx, c.seedEndpoint("details", seedID), &data); err != nil {
		return "", fmt.Errorf("%w: seed details: %v", ErrRemoteService, err)
	}

	if data.SettingsLog == "" {
		return "", nil
	}
	var settings struct {
		FileHash []string `json:"file_hash"`
	}
	if err := json.Unmarshal([]byte(data.SettingsLog), &settings); err != nil {
		return "", nil
	}

	tokens := make([]string, 0, len(settings.FileHash))
	for _, item := range settings.FileHash {
		if mapped, ok := hashNames[item]; ok {
			item = mapped
		}
		tokens = append(tokens, item)
	}
	return strings.Join(tokens, " "), nil
}

// GetPassword fetches the password notes of a password-locked seed.
// Retrieval is best-effort: transient failures are retried a fixed number
// of times with a fixed delay, and exhaustion reports a miss rather than
// an error.
func (c *Client) GetPassword(ctx context.Context, seedID string) (string, bool) {
	for attempt := 0; attempt < c.passwordRetries; attempt++ {
		password, err := c.fetchPassword(ctx, seedID)
		if err == nil {
			return password, true
		}
		log.Debug().Err(err).Str("seed_id", seedID).Int("attempt", attempt+1).Msg("Password fetch failed")
		if attempt < c.passwordRetries-1 {
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(c.passwordDelay):
			}
		}
	}
	return "", false
}

func (c *Client) fetchPassword(ctx context.Context, seedID string) (string, error) {
	var data struct {
		PW []string `json:"pw"`
	}
	if err := c.getJSON(ctx, c.seedEndpoint("pw", seedID), &data); err != nil {
		return "", err
	}
	if data.PW == nil {
		return "", fmt.Errorf("password response has no pw field")
	}
	notes := make([]string, 0, len(data.PW))
	for _, item := range data.PW {
		if mapped, ok := noteNames[item]; ok {
			item = mapped
		}
		notes = append(notes, item)
	}
	return strings.Join(notes, " "), nil
}

func (c *Client) seedEndpoint(op, seedID string) string {
	params := url.Values{}
	params.Set("id", seedID)
	params.Set("key", c.apiKey)
	return fmt.Sprintf("%s/api/v2/seed/%s?%s", c.baseURL, op, params.Encode())
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
