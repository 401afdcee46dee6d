// Package client provides test clients for e2e scenarios.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	journeyapi "github.com/c360studio/aos/processor/journey-api"
)

// JourneyClient drives the journey API as an authenticated respondent.
type JourneyClient struct {
	baseURL    string
	prefix     string
	cookie     *http.Cookie
	httpClient *http.Client
}

// NewJourneyClient creates a client that presents token in cookieName.
// Redirects are not followed so submissions can be checked step by step.
func NewJourneyClient(baseURL, prefix, cookieName, token string) *JourneyClient {
	return &JourneyClient{
		baseURL: baseURL,
		prefix:  prefix,
		cookie:  &http.Cookie{Name: cookieName, Value: token},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Submission is the outcome of posting a step.
type Submission struct {
	Status   int
	Location string
	journeyapi.SubmitResponse
	Invalid *journeyapi.ValidationResponse
}

// GetStep renders a step. Any status but 200 is an error.
func (c *JourneyClient) GetStep(ctx context.Context, name, locale string) (*journeyapi.RenderContext, error) {
	endpoint := c.baseURL + c.prefix + "steps/" + url.PathEscape(name)
	if locale != "" {
		endpoint += "?lng=" + url.QueryEscape(locale)
	}

	status, body, _, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d: %s", name, status, string(body))
	}

	var rc journeyapi.RenderContext
	if err := json.Unmarshal(body, &rc); err != nil {
		return nil, fmt.Errorf("unmarshal %s render: %w", name, err)
	}
	return &rc, nil
}

// PostStep submits fields to a step. A 303 or 422 is a Submission; any
// other status is an error.
func (c *JourneyClient) PostStep(ctx context.Context, name string, fields map[string]string) (*Submission, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	endpoint := c.baseURL + c.prefix + "steps/" + url.PathEscape(name)
	status, body, header, err := c.do(ctx, http.MethodPost, endpoint, data)
	if err != nil {
		return nil, err
	}

	sub := &Submission{Status: status, Location: header.Get("Location")}
	switch status {
	case http.StatusSeeOther:
		if err := json.Unmarshal(body, &sub.SubmitResponse); err != nil {
			return nil, fmt.Errorf("unmarshal %s submission: %w", name, err)
		}
	case http.StatusUnprocessableEntity:
		sub.Invalid = &journeyapi.ValidationResponse{}
		if err := json.Unmarshal(body, sub.Invalid); err != nil {
			return nil, fmt.Errorf("unmarshal %s validation: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("POST %s: HTTP %d: %s", name, status, string(body))
	}
	return sub, nil
}

func (c *JourneyClient) do(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(c.cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, resp.Header, nil
}
