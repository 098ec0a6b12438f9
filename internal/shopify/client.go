// internal/shopify/client.go
package shopify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/events"
)

// Client is a minimal Shopify Admin REST client covering the resources the
// sync pipeline pulls: products, orders and webhook registrations. Pagination
// follows the cursor in the Link response header.
type Client struct {
	cfg        *config.ShopifyConfig
	httpClient *http.Client
}

func NewClient(cfg *config.ShopifyConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

const pageLimit = 250

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

type productsPage struct {
	Products []events.Product `json:"products"`
}

type ordersPage struct {
	Orders []events.Order `json:"orders"`
}

// Webhook is a registration on the store side.
type Webhook struct {
	ID      int64  `json:"id,omitempty"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format,omitempty"`
}

type webhookEnvelope struct {
	Webhook Webhook `json:"webhook"`
}

type webhooksPage struct {
	Webhooks []Webhook `json:"webhooks"`
}

// GetAllProducts pages through the full product catalog.
func (c *Client) GetAllProducts(ctx context.Context) ([]events.Product, error) {
	var all []events.Product
	next := c.resourceURL("products.json", url.Values{"limit": {fmt.Sprint(pageLimit)}})
	for next != "" {
		var page productsPage
		link, err := c.get(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch products: %w", err)
		}
		all = append(all, page.Products...)
		next = link
	}
	logrus.WithField("count", len(all)).Info("Fetched products from Shopify")
	return all, nil
}

// GetAllOrders pages through orders updated at or after since, any status.
func (c *Client) GetAllOrders(ctx context.Context, since time.Time) ([]events.Order, error) {
	params := url.Values{
		"limit":          {fmt.Sprint(pageLimit)},
		"status":         {"any"},
		"updated_at_min": {since.UTC().Format(time.RFC3339)},
	}
	var all []events.Order
	next := c.resourceURL("orders.json", params)
	for next != "" {
		var page ordersPage
		link, err := c.get(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch orders: %w", err)
		}
		all = append(all, page.Orders...)
		next = link
	}
	logrus.WithField("count", len(all)).Info("Fetched orders from Shopify")
	return all, nil
}

// ListWebhooks returns the store's current webhook registrations.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var page webhooksPage
	if _, err := c.get(ctx, c.resourceURL("webhooks.json", nil), &page); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return page.Webhooks, nil
}

// CreateWebhook registers a webhook for the given topic, skipping topics that
// already point at the same address.
func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	existing, err := c.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Topic == topic && existing[i].Address == address {
			return &existing[i], nil
		}
	}

	payload, err := json.Marshal(webhookEnvelope{Webhook: Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.resourceURL("webhooks.json", nil), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("shopify returned %d creating webhook %s: %s", resp.StatusCode, topic, body)
	}

	var created webhookEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode webhook response: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"topic":   topic,
		"address": address,
	}).Info("Registered Shopify webhook")
	return &created.Webhook, nil
}

// get performs one authenticated GET, decodes the body into out, and returns
// the next-page URL from the Link header, or "" when there is no next page.
func (c *Client) get(ctx context.Context, rawURL string, out interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("shopify returned %d for %s: %s", resp.StatusCode, req.URL.Path, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return nextPageURL(resp.Header.Get("Link")), nil
}

func (c *Client) authorize(req *http.Request) {
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.Password)
}

func (c *Client) resourceURL(resource string, params url.Values) string {
	u := fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/%s",
		c.cfg.ShopName, c.cfg.APIVersion, resource)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// nextPageURL extracts the rel="next" cursor URL from a Link header.
func nextPageURL(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	if m := nextLinkRe.FindStringSubmatch(linkHeader); m != nil {
		return m[1]
	}
	return ""
}
