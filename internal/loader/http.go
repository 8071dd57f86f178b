// internal/loader/http.go
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tamzrod/modem-monitor/internal/config"
	"github.com/tamzrod/modem-monitor/internal/entity"
)

// maxBody caps one backend response.
const maxBody = 16 << 20

// HTTP pulls fleet metadata from the backend API.
//
//	GET {url}/modems?type=N  -> []entity.ModemRecord
//	GET {url}/conversions    -> []entity.ConversionRecord
type HTTP struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTP(cfg config.LoaderConfig) *HTTP {
	return &HTTP{
		base:   strings.TrimRight(cfg.URL, "/"),
		token:  cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

func (l *HTTP) LoadModems(ctx context.Context, typ int) ([]entity.ModemRecord, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(typ))

	var out []entity.ModemRecord
	if err := l.get(ctx, "/modems", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *HTTP) LoadConversions(ctx context.Context) ([]entity.ConversionRecord, error) {
	var out []entity.ConversionRecord
	if err := l.get(ctx, "/conversions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *HTTP) get(ctx context.Context, path string, q url.Values, out any) error {
	u := l.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrRequest, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return fmt.Errorf("%w: GET %s: %d", ErrStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrDecode, path, err)
	}
	return nil
}
