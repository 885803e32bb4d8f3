package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

// graphClient speaks the form-encoded Graph API shared by Facebook and Instagram.
type graphClient struct {
	platform models.Platform
	baseURL  string
	client   *http.Client
}

func (g *graphClient) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.TrimRight(g.baseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (g *graphClient) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return protocolErr(g.platform, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, out)
}

func (g *graphClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return protocolErr(g.platform, err)
	}
	return g.do(req, out)
}

func (g *graphClient) do(req *http.Request, out any) error {
	client := g.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return protocolErr(g.platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocolErr(g.platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProtocolError{Platform: g.platform, StatusCode: resp.StatusCode, Detail: graphErrorDetail(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &ProtocolError{Platform: g.platform, StatusCode: resp.StatusCode, Detail: "invalid response body", Err: err}
		}
	}
	return nil
}

func graphErrorDetail(body []byte) string {
	var e transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		if e.Error.Code != 0 {
			return fmt.Sprintf("%s (code %d)", e.Error.Message, e.Error.Code)
		}
		return e.Error.Message
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 300 {
		detail = detail[:300]
	}
	return detail
}
