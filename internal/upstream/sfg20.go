// Package upstream is the SFG20 GraphQL client. It issues the pre-templated
// regime and share-link queries and hands the raw schedule graph to the
// normalizer; it implements no GraphQL machinery of its own.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/metrics"
	"github.com/IoFMT/Inception/internal/model"
)

// Endpoints per target environment.
var endpoints = map[model.Environment]string{
	model.EnvironmentDemo: "https://api.demo.facilities-iq.com/graphql",
	model.EnvironmentProd: "https://api.facilities-iq.com/graphql",
}

const regimeQuery = `query ExampleQuery {
  regime(shareLinkId: %q, accessToken: %q) {
    words
    guid
    schedules {
      ... on APISchedule {
        id
        code
        title
        rawTitle
        rawWhere
        modified
        version
        scheduleCategories
        retired
        skills {
          ... on APISkill {
            countTasks
            skill {
              CoreSkillingID
              Rate
              Skilling
              SkillingCode
              _id
            }
          }
        }
        tasks {
          ... on APITask {
            _status
            id
            date
            title
            classification
            intervalInHours
            where
            minutes
            url
            linkId
            content
            fullContent
            fullHtmlContent
            steps
          }
        }
        assets {
          ... on APIAsset {
            id
            tag
            description
          }
        }
        frequencies {
          ... on APIFrequency {
            label
            countSchedules
            countAssets
            countTasks
            intervalInHours
          }
        }
      }
    }
  }
}`

const shareLinksQuery = `query GetMyShareLinks($search: String, $take: Int, $skip: Int) {
  getMyShareLinks(skip: $skip, take: $take, search: $search) {
    total
    links {
      id
      name
      url
    }
  }
}`

// ShareLink is one upstream share link as returned by GetMyShareLinks.
type ShareLink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client talks to one of the SFG20 environments.
type Client struct {
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewClient creates an SFG20 client. The timeout bounds each upstream call;
// the core performs no retry.
func NewClient(timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// FetchSchedules retrieves the raw schedule graph for a share link.
func (c *Client) FetchSchedules(ctx context.Context, env model.Environment, sharelinkID, accessToken string) ([]map[string]any, error) {
	body := map[string]any{
		"query": fmt.Sprintf(regimeQuery, sharelinkID, accessToken),
	}

	var resp struct {
		Data struct {
			Regime struct {
				Schedules []map[string]any `json:"schedules"`
			} `json:"regime"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.post(ctx, env, "", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, apierrors.Upstream("regime query failed: %s", resp.Errors[0].Message)
	}
	return resp.Data.Regime.Schedules, nil
}

// FetchShareLinks retrieves the share links visible to the tenant's token.
func (c *Client) FetchShareLinks(ctx context.Context, env model.Environment, accessToken string) ([]ShareLink, error) {
	body := map[string]any{
		"operationName": "GetMyShareLinks",
		"query":         shareLinksQuery,
		"variables":     map[string]any{"search": ""},
	}

	var resp struct {
		Data struct {
			GetMyShareLinks struct {
				Total int         `json:"total"`
				Links []ShareLink `json:"links"`
			} `json:"getMyShareLinks"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.post(ctx, env, accessToken, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, apierrors.Upstream("share link query failed: %s", resp.Errors[0].Message)
	}
	return resp.Data.GetMyShareLinks.Links, nil
}

func (c *Client) post(ctx context.Context, env model.Environment, accessToken string, body, out any) error {
	url, ok := endpoints[env]
	if !ok {
		return apierrors.Validation("no SFG20 endpoint for environment %q", env)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamCall(string(env), err)
	if err != nil {
		return apierrors.Upstream("SFG20 call failed: %v", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("SFG20 call completed",
		zap.String("environment", string(env)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apierrors.Upstream("SFG20 returned status %d: %s", resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierrors.Upstream("failed to decode SFG20 response: %v", err)
	}
	return nil
}
