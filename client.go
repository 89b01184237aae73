package gridview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Publisher receives notifications decoded from responses
type Publisher interface {
	Publish(n Notification)
}

// HTTPProcessor executes requests against a grid server and publishes the
// returned notification.
type HTTPProcessor struct {
	BaseURL string
	Client  *http.Client
	Updates Publisher
}

func NewHTTPProcessor(baseURL string, updates Publisher) *HTTPProcessor {
	return &HTTPProcessor{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  http.DefaultClient,
		Updates: updates,
	}
}

// URL builds the target url of req, e.g. base/path?action=$execute&pageSize=10&page=0
func (p *HTTPProcessor) URL(req Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := p.BaseURL + path
	q := ""
	if req.Action != "" {
		q = "action=" + url.QueryEscape(req.Action)
	}
	q += req.QueryString
	q = strings.TrimPrefix(q, "&")
	if q != "" {
		u += "?" + q
	}
	return u
}

func (p *HTTPProcessor) ProcessEvent(ctx context.Context, req Request) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Payload != nil && method != http.MethodGet {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.URL(req), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, req.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if p.Updates == nil || resp.ContentLength == 0 {
		return nil
	}

	var n Notification
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode notification: %w", err)
	}
	if n.Path == "" {
		n.Path = req.Path
	}
	p.Updates.Publish(n)
	return nil
}
