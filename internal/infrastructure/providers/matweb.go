package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/database/redis"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/types/material"
)

// propertyBlockRe matches the repeating name/value cell pair of a MatWeb
// datasheet property table.  The page layout is static enough that a full
// HTML parser buys nothing over this.
var propertyBlockRe = regexp.MustCompile(
	`(?s)<td[^>]*class="prop-name"[^>]*>\s*(.+?)\s*</td>\s*<td[^>]*class="prop-value"[^>]*>\s*(.+?)\s*</td>`)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// MatWebProperty is one scraped name/value pair.
type MatWebProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MatWebResult holds the engineering properties scraped from one datasheet
// page.
type MatWebResult struct {
	PageURL    string           `json:"pageUrl"`
	Properties []MatWebProperty `json:"properties"`
}

// PropertyList flattens the scraped pairs into display properties.
func (r *MatWebResult) PropertyList() []material.Property {
	if r == nil {
		return nil
	}
	props := make([]material.Property, 0, len(r.Properties))
	for _, p := range r.Properties {
		props = append(props, material.Property{
			Name:      p.Name,
			Value:     p.Value,
			Source:    material.SourceMatWeb,
			SourceURL: r.PageURL,
			Category:  categorize(p.Name),
		})
	}
	return props
}

// categorize buckets an engineering property by its name.
func categorize(name string) material.PropertyCategory {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "thermal"),
		strings.Contains(lower, "melting"),
		strings.Contains(lower, "temperature"),
		strings.Contains(lower, "heat"):
		return material.CategoryThermal
	case strings.Contains(lower, "density"),
		strings.Contains(lower, "specific gravity"),
		strings.Contains(lower, "water absorption"):
		return material.CategoryPhysical
	default:
		return material.CategoryMechanical
	}
}

// MatWebClient scrapes engineering-property datasheets by material name.
type MatWebClient struct {
	http    *http.Client
	baseURL string
	deps
}

// NewMatWebClient constructs the adapter.
func NewMatWebClient(cfg config.ProvidersConfig, cache redis.Cache, metrics *prometheus.AppMetrics, logger logging.Logger) *MatWebClient {
	if cache == nil {
		cache = redis.NewNopCache()
	}
	return &MatWebClient{
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: strings.TrimRight(cfg.MatWebBaseURL, "/"),
		deps: deps{
			cache:    cache,
			cacheTTL: cfg.CacheTTL,
			metrics:  metrics,
			logger:   logger.Named("matweb"),
		},
	}
}

// Lookup scrapes the first datasheet page variant that yields properties.
// nil on any non-success.
func (c *MatWebClient) Lookup(ctx context.Context, name string) *MatWebResult {
	key := ProviderMatWeb + ":" + strings.ToLower(strings.TrimSpace(name))

	var result MatWebResult
	err := c.cache.GetOrSet(ctx, key, &result, c.cacheTTL,
		func(ctx context.Context) (interface{}, error) {
			if r := c.scrape(ctx, name); r != nil {
				return r, nil
			}
			return nil, nil
		})
	if err != nil {
		return nil
	}
	return &result
}

func (c *MatWebClient) scrape(ctx context.Context, name string) *MatWebResult {
	started := time.Now()

	for _, slug := range SlugVariants(name) {
		pageURL := fmt.Sprintf("%s/materials/%s", c.baseURL, slug)
		if result := c.fetchPage(ctx, pageURL); result != nil {
			c.record(ProviderMatWeb, true, started)
			return result
		}
	}

	c.record(ProviderMatWeb, false, started)
	return nil
}

func (c *MatWebClient) fetchPage(ctx context.Context, pageURL string) *MatWebResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("matweb page fetch failed",
			logging.String("url", pageURL), logging.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}

	matches := propertyBlockRe.FindAllStringSubmatch(string(body), -1)
	if len(matches) == 0 {
		return nil
	}

	result := &MatWebResult{PageURL: pageURL}
	for _, m := range matches {
		propName := cleanCell(m[1])
		propValue := cleanCell(m[2])
		if propName == "" || propValue == "" {
			continue
		}
		result.Properties = append(result.Properties, MatWebProperty{
			Name:  propName,
			Value: propValue,
		})
	}
	if len(result.Properties) == 0 {
		return nil
	}
	return result
}

// cleanCell strips residual markup and collapses whitespace in a table cell.
func cleanCell(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// SlugVariants generates the datasheet URL slugs tried for a material name,
// in order: Title-Case-hyphenated, the raw name hyphenated, UPPERCASE, and
// lowercase.
func SlugVariants(name string) []string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return nil
	}

	titled := make([]string, len(fields))
	for i, f := range fields {
		titled[i] = strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
	}

	raw := strings.Join(fields, "-")
	variants := []string{
		strings.Join(titled, "-"),
		raw,
		strings.ToUpper(raw),
		strings.ToLower(raw),
	}

	// drop duplicates while preserving order
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
