package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jpalmerr/labboard/internal/model"
)

// SaveResult is the backend's answer to a save.
type SaveResult struct {
	Path   string `json:"path"`
	Backup string `json:"backup,omitempty"`
}

type healthRequest struct {
	Target string        `json:"target"`
	Checks []model.Check `json:"checks"`
}

type scanRequest struct {
	Subnet   string `json:"subnet"`
	TopPorts int    `json:"top_ports,omitempty"`
}

type scanResponse struct {
	Hosts  []model.DiscoveredHost `json:"hosts"`
	Error  string                 `json:"error"`
	Detail string                 `json:"detail"`
}

type backupsResponse struct {
	Files []string `json:"files"`
}

type restoreRequest struct {
	Name string `json:"name"`
}

// Servers fetches the authoritative configuration as raw text.
func (c *Client) Servers(ctx context.Context) ([]byte, error) {
	resp := c.Fetch(ctx, http.MethodGet, "/servers", nil)
	if err := check("servers", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Static fetches a same-origin static resource without credentials.
func (c *Client) Static(ctx context.Context, rawURL string) ([]byte, error) {
	resp := c.fetch(ctx, http.MethodGet, rawURL, nil, false)
	if err := check("static", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Health asks the backend to run checks against target and returns the raw
// verdict body.
func (c *Client) Health(ctx context.Context, target string, checks []model.Check) ([]byte, error) {
	resp := c.Fetch(ctx, http.MethodPost, "/health", healthRequest{Target: target, Checks: checks})
	if err := check("health", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Discoveries returns the hosts found by previous scans.
func (c *Client) Discoveries(ctx context.Context) ([]model.DiscoveredHost, error) {
	var hosts []model.DiscoveredHost
	if err := c.do(ctx, "discoveries", http.MethodGet, "/discoveries", nil, &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// Scan triggers active discovery of subnet.
func (c *Client) Scan(ctx context.Context, subnet string, topPorts int) ([]model.DiscoveredHost, error) {
	var out scanResponse
	if err := c.do(ctx, "scan", http.MethodPost, "/scan", scanRequest{Subnet: subnet, TopPorts: topPorts}, &out); err != nil {
		return nil, err
	}
	// the backend reports scanner failures in a 200 body
	if out.Error != "" {
		msg := out.Error
		if out.Detail != "" {
			msg += ": " + out.Detail
		}
		return nil, &StatusError{Op: "scan", StatusCode: http.StatusOK, Message: msg}
	}
	return out.Hosts, nil
}

// Schedule returns the recurring scan configuration.
func (c *Client) Schedule(ctx context.Context) (model.Schedule, error) {
	var s model.Schedule
	err := c.do(ctx, "schedule", http.MethodGet, "/schedule", nil, &s)
	return s, err
}

// SetSchedule replaces the recurring scan configuration.
func (c *Client) SetSchedule(ctx context.Context, s model.Schedule) error {
	return c.do(ctx, "schedule", http.MethodPost, "/schedule", s, nil)
}

// SaveConfig persists cfg. With backup set, the backend also snapshots it.
func (c *Client) SaveConfig(ctx context.Context, cfg model.Configuration, backup bool) (SaveResult, error) {
	path, op := "/save-config", "save-config"
	if backup {
		path, op = "/save-config-with-backup", "save-config-with-backup"
	}
	var out SaveResult
	err := c.do(ctx, op, http.MethodPost, path, model.Normalize(cfg), &out)
	return out, err
}

// Backups lists backup names in the backend's (chronological) order.
func (c *Client) Backups(ctx context.Context) ([]string, error) {
	var out backupsResponse
	if err := c.do(ctx, "backups", http.MethodGet, "/backups", nil, &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = []string{}
	}
	return out.Files, nil
}

// Backup downloads one backup snapshot as raw text.
func (c *Client) Backup(ctx context.Context, name string) ([]byte, error) {
	resp := c.Fetch(ctx, http.MethodGet, "/backups/"+url.PathEscape(name), nil)
	if err := check("backup", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// RestoreConfig overwrites the authoritative configuration with a backup.
func (c *Client) RestoreConfig(ctx context.Context, name string) error {
	return c.do(ctx, "restore-config", http.MethodPost, "/restore-config", restoreRequest{Name: name}, nil)
}

// Validate submits cfg text to the schema validation endpoint. raw must be a
// JSON document; it is sent as-is.
func (c *Client) Validate(ctx context.Context, raw []byte) error {
	resp := c.Fetch(ctx, http.MethodPost, "/validate", rawJSON(raw))
	return check("validate", resp)
}

// rawJSON marshals to itself.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return r, nil
}
