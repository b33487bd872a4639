package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/database/redis"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/types/material"
)

// matprojectFields is the field list requested from the summary endpoint.
const matprojectFields = "material_id,formula_pretty,density,band_gap,formation_energy_per_atom,energy_above_hull,volume,symmetry"

// MatProjectResult holds crystal structure and formation-energy data for
// one computed material.  Optional fields are pointers so an absent value is
// distinguishable from a genuine zero (band gap 0 means a metal).
type MatProjectResult struct {
	MaterialID             string   `json:"material_id"`
	FormulaPretty          string   `json:"formula_pretty"`
	Density                *float64 `json:"density"`
	BandGap                *float64 `json:"band_gap"`
	FormationEnergyPerAtom *float64 `json:"formation_energy_per_atom"`
	EnergyAboveHull        *float64 `json:"energy_above_hull"`
	Volume                 *float64 `json:"volume"`
	Symmetry               struct {
		CrystalSystem string `json:"crystal_system"`
		Symbol        string `json:"symbol"`
	} `json:"symmetry"`
}

// Properties flattens the result into display properties.
func (r *MatProjectResult) Properties() []material.Property {
	if r == nil {
		return nil
	}
	sourceURL := "https://materialsproject.org/materials/" + r.MaterialID

	var props []material.Property
	add := func(name string, value *float64, unit string) {
		if value == nil {
			return
		}
		display := strconv.FormatFloat(*value, 'g', 6, 64)
		if unit != "" {
			display += " " + unit
		}
		props = append(props, material.Property{
			Name:      name,
			Value:     display,
			Source:    material.SourceMatProject,
			SourceURL: sourceURL,
			Category:  material.CategoryPhysical,
		})
	}

	add("Density", r.Density, "g/cm³")
	add("Band Gap", r.BandGap, "eV")
	add("Formation Energy per Atom", r.FormationEnergyPerAtom, "eV/atom")
	add("Energy Above Hull", r.EnergyAboveHull, "eV/atom")
	add("Cell Volume", r.Volume, "Å³")
	if r.Symmetry.CrystalSystem != "" {
		props = append(props, material.Property{
			Name:      "Crystal System",
			Value:     r.Symmetry.CrystalSystem,
			Source:    material.SourceMatProject,
			SourceURL: sourceURL,
			Category:  material.CategoryPhysical,
		})
	}
	if r.Symmetry.Symbol != "" {
		props = append(props, material.Property{
			Name:      "Space Group",
			Value:     r.Symmetry.Symbol,
			Source:    material.SourceMatProject,
			SourceURL: sourceURL,
			Category:  material.CategoryPhysical,
		})
	}
	return props
}

type matprojectEnvelope struct {
	Data []MatProjectResult `json:"data"`
}

// MatProjectClient queries the Materials Project summary API by formula.
type MatProjectClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	deps
}

// NewMatProjectClient constructs the adapter.  An empty API key leaves the
// client in place but every lookup is skipped.
func NewMatProjectClient(cfg config.ProvidersConfig, cache redis.Cache, metrics *prometheus.AppMetrics, logger logging.Logger) *MatProjectClient {
	if cache == nil {
		cache = redis.NewNopCache()
	}
	return &MatProjectClient{
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: strings.TrimRight(cfg.MatProjectBaseURL, "/"),
		apiKey:  cfg.MatProjectAPIKey,
		deps: deps{
			cache:    cache,
			cacheTTL: cfg.CacheTTL,
			metrics:  metrics,
			logger:   logger.Named("matproject"),
		},
	}
}

// Lookup fetches crystal data for a molecular formula.  Skipped entirely
// when no formula or no API key is available; nil on any non-success.
func (c *MatProjectClient) Lookup(ctx context.Context, formula string) *MatProjectResult {
	normalized := NormalizeFormula(formula)
	if normalized == "" || c.apiKey == "" {
		return nil
	}

	key := ProviderMatProject + ":" + strings.ToLower(normalized)

	var result MatProjectResult
	err := c.cache.GetOrSet(ctx, key, &result, c.cacheTTL,
		func(ctx context.Context) (interface{}, error) {
			if r := c.fetch(ctx, normalized); r != nil {
				return r, nil
			}
			return nil, nil
		})
	if err != nil {
		return nil
	}
	return &result
}

func (c *MatProjectClient) fetch(ctx context.Context, formula string) *MatProjectResult {
	started := time.Now()

	q := url.Values{}
	q.Set("formula", formula)
	q.Set("_fields", matprojectFields)
	q.Set("_limit", "1")
	reqURL := fmt.Sprintf("%s/materials/summary/?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.record(ProviderMatProject, false, started)
		return nil
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("materials project request failed",
			logging.String("formula", formula), logging.Err(err))
		c.record(ProviderMatProject, false, started)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("materials project returned non-ok status",
				logging.String("formula", formula), logging.Int("status", resp.StatusCode))
		}
		c.record(ProviderMatProject, false, started)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.record(ProviderMatProject, false, started)
		return nil
	}

	var envelope matprojectEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data) == 0 {
		c.record(ProviderMatProject, false, started)
		return nil
	}

	c.record(ProviderMatProject, true, started)
	return &envelope.Data[0]
}

// NormalizeFormula reduces a molecular formula to the form the Materials
// Project accepts: parentheses are removed and group repeat counts dropped,
// including the polymer repeat marker, so "(C3H4O2)n" becomes "C3H4O2".
func NormalizeFormula(raw string) string {
	s := strings.TrimSpace(raw)
	var b strings.Builder
	afterGroup := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == '[':
			afterGroup = false
		case c == ')' || c == ']':
			afterGroup = true
		case afterGroup && (c == 'n' || c == 'x' || (c >= '0' && c <= '9')):
			// repeat count attached to a closed group
		default:
			afterGroup = false
			b.WriteByte(c)
		}
	}
	return b.String()
}
