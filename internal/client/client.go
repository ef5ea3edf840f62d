package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/Spotter/internal/model"
)

const (
	apiPath     = "/api/v1"
	contentType = "application/json"
)

// Client talks to the control API of a running spotter daemon.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

func New(serverURL string) (*Client, error) {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://127.0.0.1:7878`")
	}

	parsedURL.Path = apiPath
	c := &Client{
		baseURL: parsedURL,
		client:  &http.Client{},
	}
	return c, nil
}

type startRequest struct {
	Phrases []string `json:"phrases,omitempty"`
}

func (c *Client) Start(ctx context.Context, phrases []string) (model.Status, error) {
	raw, err := json.Marshal(startRequest{Phrases: phrases})
	if err != nil {
		return model.Status{}, err
	}
	var st model.Status
	err = c.do(ctx, http.MethodPost, "start", nil, raw, &st)
	return st, err
}

func (c *Client) Stop(ctx context.Context) (model.Status, error) {
	var st model.Status
	err := c.do(ctx, http.MethodPost, "stop", nil, nil, &st)
	return st, err
}

func (c *Client) Status(ctx context.Context) (model.Status, error) {
	var st model.Status
	err := c.do(ctx, http.MethodGet, "status", nil, nil, &st)
	return st, err
}

func (c *Client) History(ctx context.Context, limit int) ([]model.Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var ret []model.Notification
	err := c.do(ctx, http.MethodGet, "history", q, nil, &ret)
	return ret, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := c.decodeResponse(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	slog.DebugContext(ctx, "request succeeded", "method", method, "path", u.Path)
	return nil
}

func (c *Client) decodeResponse(resp *http.Response, out any) error {
	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("failed to parse response content type header: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if contentType != "application/json" {
			return fmt.Errorf("expected `application/json` content type, got: %s", contentType)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding json response failed: %w", err)
		}
		return nil

	case http.StatusBadRequest, http.StatusNotFound:
		if contentType != "application/problem+json" {
			break
		}
		var problemDetail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&problemDetail); err != nil {
			return fmt.Errorf("decoding json response failed: %w", err)
		}
		return fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problemDetail.Detail)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf("unknown error, status: %d, body: %s", resp.StatusCode, string(respBody))
}
