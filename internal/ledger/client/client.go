// Package client talks to a ledger service over HTTP with JSON bodies.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	headerRequestID = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// Client issues one request per call and never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ledger.Service = (*Client)(nil)

type Config struct {
	BaseURL string
	// Timeout bounds a whole request. Zero means 10s.
	Timeout time.Duration
	// HTTPClient replaces the default instrumented client (tests).
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ledger url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{httpClient: httpClient, baseURL: base}, nil
}

func (c *Client) Accounts(ctx context.Context) (ledger.AccountsPayload, error) {
	var out ledger.AccountsPayload
	if err := c.do(ctx, "accounts", http.MethodGet, "/accounts", nil, &out); err != nil {
		return ledger.AccountsPayload{}, err
	}
	return out, nil
}

func (c *Client) Cards(ctx context.Context) ([]ledger.Card, error) {
	var out []ledger.Card
	if err := c.do(ctx, "cards", http.MethodGet, "/cards", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddBank(ctx context.Context, name string, balance decimal.Decimal) error {
	return c.do(ctx, "add bank", http.MethodPost, "/banks", ledger.Card{Name: name, Balance: balance}, nil)
}

func (c *Client) AddDebt(ctx context.Context, name string, balance decimal.Decimal) error {
	return c.do(ctx, "add debt", http.MethodPost, "/debts", ledger.Card{Name: name, Balance: balance}, nil)
}

func (c *Client) DeleteBank(ctx context.Context, name string) error {
	return c.do(ctx, "delete bank", http.MethodDelete, "/banks/"+url.PathEscape(name), nil, nil)
}

func (c *Client) DeleteDebt(ctx context.Context, name string) error {
	return c.do(ctx, "delete debt", http.MethodDelete, "/debts/"+url.PathEscape(name), nil, nil)
}

func (c *Client) DeleteCard(ctx context.Context, name string) error {
	return c.do(ctx, "delete card", http.MethodDelete, "/cards/"+url.PathEscape(name), nil, nil)
}

func (c *Client) Transactions(ctx context.Context) (ledger.Feed, error) {
	var out []json.RawMessage
	if err := c.do(ctx, "transactions", http.MethodGet, "/transactions", nil, &out); err != nil {
		return nil, err
	}
	return ledger.Feed(out), nil
}

func (c *Client) AddTransaction(ctx context.Context, tx core.Transaction) error {
	return c.do(ctx, "add transaction", http.MethodPost, "/transactions", tx, nil)
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error {
	return c.do(ctx, "update transaction", http.MethodPut, "/transactions/"+strconv.FormatInt(id, 10), tx, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, "/transactions/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, "categories", http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error) {
	path := "/summary"
	if month != "" {
		path += "?" + url.Values{"month": {month.String()}}.Encode()
	}
	var out []core.SummaryItem
	if err := c.do(ctx, "summary", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Adjust(ctx context.Context, account string, req core.AdjustmentRequest) error {
	return c.do(ctx, "adjust", http.MethodPost, "/accounts/"+url.PathEscape(account)+"/adjust", req, nil)
}

func (c *Client) Transfer(ctx context.Context, req core.TransferRequest) error {
	return c.do(ctx, "transfer", http.MethodPost, "/transfer", req, nil)
}

// do sends one request. Every failure comes back as *ledger.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &ledger.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ledger.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ledger.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ledger.TransportError{Op: op, StatusCode: resp.StatusCode, Err: statusError(resp)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ledger.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ledger.ErrConflict, msg)
	default:
		return errors.New(msg)
	}
}
