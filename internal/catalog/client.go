// Package catalog resolves display names through the vendor catalog API.
// Lookups never fail: any error degrades to a placeholder name.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vendoralerts/internal/metrics"
	"vendoralerts/internal/model"
)

const DefaultTimeout = 30 * time.Second

type vendorResponse struct {
	CompanyName string `json:"company_name"`
}

type productResponse struct {
	ChemicalName string `json:"chemical_name"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// VendorName returns the vendor's company name, or "Vendor {id}".
func (c *Client) VendorName(ctx context.Context, id int64) string {
	var v vendorResponse
	if err := c.get(ctx, fmt.Sprintf("/vendors/%d", id), &v); err != nil || v.CompanyName == "" {
		c.lookupFailed("vendor", id, err)
		return fmt.Sprintf("Vendor %d", id)
	}
	metrics.CatalogLookups.WithLabelValues("vendor", "ok").Inc()
	return v.CompanyName
}

// ProductName returns the product's chemical name, or "Product {id}".
func (c *Client) ProductName(ctx context.Context, id int64) string {
	var p productResponse
	if err := c.get(ctx, fmt.Sprintf("/products/%d", id), &p); err != nil || p.ChemicalName == "" {
		c.lookupFailed("product", id, err)
		return fmt.Sprintf("Product %d", id)
	}
	metrics.CatalogLookups.WithLabelValues("product", "ok").Inc()
	return p.ChemicalName
}

// EntityName names vendors and products through the API; other entity
// types are rendered as "{entity_type} {id}".
func (c *Client) EntityName(ctx context.Context, entityType string, id int64) string {
	switch entityType {
	case model.EntityVendor:
		return c.VendorName(ctx, id)
	case model.EntityProduct:
		return c.ProductName(ctx, id)
	}
	return fmt.Sprintf("%s %d", entityType, id)
}

func (c *Client) lookupFailed(resource string, id int64, err error) {
	metrics.CatalogLookups.WithLabelValues(resource, "error").Inc()
	if err == nil {
		err = fmt.Errorf("empty %s name", resource)
	}
	c.log.Error("Error getting name from catalog API", "resource", resource, "id", id, "error", err)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog API returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
