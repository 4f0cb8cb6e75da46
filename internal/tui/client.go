// Package tui is a terminal dashboard over the rebalance service's run
// history: browse recent runs, list a run's accounts with their status,
// residual and number of proposed tickers, and read the diagnostics a
// run raised.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin HTTP client over the service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Response types

type RunSummary struct {
	RunID        string    `json:"RunID"`
	PortfolioKey string    `json:"PortfolioKey"`
	StartedAt    time.Time `json:"StartedAt"`
	FinishedAt   time.Time `json:"FinishedAt"`
}

type AccountID struct {
	Institution   string `json:"Institution"`
	AccountNumber string `json:"AccountNumber"`
}

type AccountResult struct {
	AccountID AccountID          `json:"AccountID"`
	Status    string             `json:"Status"`
	Residual  float64            `json:"Residual"`
	Values    map[string]float64 `json:"Values"`
}

type Diagnostic struct {
	Kind     string `json:"Kind"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
}

// Envelope shapes mirror the API's {data: {...}, metadata: {...}} responses.

type runsEnvelope struct {
	Data struct {
		Runs []RunSummary `json:"runs"`
	} `json:"data"`
}

type runEnvelope struct {
	Data struct {
		Accounts []AccountResult `json:"accounts"`
	} `json:"data"`
}

type diagnosticsEnvelope struct {
	Data struct {
		Diagnostics []Diagnostic `json:"diagnostics"`
	} `json:"data"`
}

// Runs fetches recent runs.
func (c *Client) Runs(limit int) ([]RunSummary, error) {
	var env runsEnvelope
	params := url.Values{"limit": []string{fmt.Sprint(limit)}}
	if err := c.get("/api/runs", params, &env); err != nil {
		return nil, err
	}
	return env.Data.Runs, nil
}

// Run fetches one run's account results.
func (c *Client) Run(runID string) ([]AccountResult, error) {
	var env runEnvelope
	if err := c.get("/api/runs/"+url.PathEscape(runID), nil, &env); err != nil {
		return nil, err
	}
	return env.Data.Accounts, nil
}

// Diagnostics fetches one run's diagnostics.
func (c *Client) Diagnostics(runID string) ([]Diagnostic, error) {
	var env diagnosticsEnvelope
	if err := c.get("/api/runs/"+url.PathEscape(runID)+"/diagnostics", nil, &env); err != nil {
		return nil, err
	}
	return env.Data.Diagnostics, nil
}

func (c *Client) get(path string, params url.Values, target any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	resp, err := c.httpClient.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
