package tokeninfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// Client looks up a project token's TVL and 24h volume from the external
// token-info service. The upstream answers with a positional tuple; the
// named TokenInfo struct is built here so nothing downstream depends on
// tuple ordering.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
		logger: logger,
	}
}

type tokenInfoResponse struct {
	// Positional: [price, tvl, volume24h].
	TokenInfo []float64 `json:"tokenInfo"`
}

// TokenInfo returns the volume/TVL pair for a project token. Lookup
// failures and unknown tokens both return nil: the ranking record's tvl
// and volume columns stay null either way.
func (c *Client) TokenInfo(ctx context.Context, projectID, contractAddress string) (*models.TokenInfo, error) {
	if c.BaseURL == "" || projectID == "" || contractAddress == "" {
		return nil, nil
	}

	info, err := c.fetch(ctx, projectID, contractAddress)
	if err != nil {
		c.logger.WithError(err).WithField("project_id", projectID).Warn("token info lookup failed")
		return nil, nil
	}
	return info, nil
}

func (c *Client) fetch(ctx context.Context, projectID, contractAddress string) (*models.TokenInfo, error) {
	q := url.Values{}
	q.Set("projectId", projectID)
	q.Set("contractAddress", contractAddress)

	u := c.BaseURL + "/token-info?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("tokeninfo http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out tokenInfoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode token info response: %w", err)
	}
	if len(out.TokenInfo) < 3 {
		return nil, nil
	}

	return &models.TokenInfo{
		TVL:       out.TokenInfo[1],
		Volume24h: out.TokenInfo[2],
	}, nil
}
