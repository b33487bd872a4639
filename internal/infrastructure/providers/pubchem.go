package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/database/redis"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/types/material"
)

// pubchemFields is the property list requested from the PUG REST API.
const pubchemFields = "MolecularFormula,MolecularWeight,IUPACName,XLogP,TPSA,Complexity,HBondDonorCount,HBondAcceptorCount,ExactMass"

// PubChemResult holds the chemistry properties of one compound.  Numeric
// fields are json.Number because the API reports some of them as JSON
// strings and some as numbers depending on the compound.
type PubChemResult struct {
	CID                int64       `json:"CID"`
	MolecularFormula   string      `json:"MolecularFormula"`
	MolecularWeight    json.Number `json:"MolecularWeight"`
	IUPACName          string      `json:"IUPACName"`
	XLogP              json.Number `json:"XLogP"`
	TPSA               json.Number `json:"TPSA"`
	Complexity         json.Number `json:"Complexity"`
	HBondDonorCount    json.Number `json:"HBondDonorCount"`
	HBondAcceptorCount json.Number `json:"HBondAcceptorCount"`
	ExactMass          json.Number `json:"ExactMass"`
}

// Formula returns the molecular formula, used by the Materials Project
// adapter downstream.
func (r *PubChemResult) Formula() string {
	if r == nil {
		return ""
	}
	return r.MolecularFormula
}

// Properties flattens the result into display properties.
func (r *PubChemResult) Properties() []material.Property {
	if r == nil {
		return nil
	}
	sourceURL := fmt.Sprintf("https://pubchem.ncbi.nlm.nih.gov/compound/%d", r.CID)

	var props []material.Property
	add := func(name string, value json.Number, unit string) {
		if value == "" {
			return
		}
		display := string(value)
		if unit != "" {
			display += " " + unit
		}
		props = append(props, material.Property{
			Name:      name,
			Value:     display,
			Source:    material.SourcePubChem,
			SourceURL: sourceURL,
			Category:  material.CategoryPhysical,
		})
	}

	if r.MolecularFormula != "" {
		props = append(props, material.Property{
			Name:      "Molecular Formula",
			Value:     r.MolecularFormula,
			Source:    material.SourcePubChem,
			SourceURL: sourceURL,
			Category:  material.CategoryPhysical,
		})
	}
	add("Molecular Weight", r.MolecularWeight, "g/mol")
	add("XLogP", r.XLogP, "")
	add("Topological Polar Surface Area", r.TPSA, "Å²")
	add("Complexity", r.Complexity, "")
	add("Hydrogen Bond Donor Count", r.HBondDonorCount, "")
	add("Hydrogen Bond Acceptor Count", r.HBondAcceptorCount, "")
	add("Exact Mass", r.ExactMass, "g/mol")
	return props
}

// pubchemEnvelope is the PUG REST property-table response shape.
type pubchemEnvelope struct {
	PropertyTable struct {
		Properties []PubChemResult `json:"Properties"`
	} `json:"PropertyTable"`
}

// PubChemClient looks compounds up by exact name against the PUG REST API.
type PubChemClient struct {
	http    *http.Client
	baseURL string
	deps
}

// NewPubChemClient constructs the adapter.  cache may be nil, in which case
// lookups are uncached.
func NewPubChemClient(cfg config.ProvidersConfig, cache redis.Cache, metrics *prometheus.AppMetrics, logger logging.Logger) *PubChemClient {
	if cache == nil {
		cache = redis.NewNopCache()
	}
	return &PubChemClient{
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: strings.TrimRight(cfg.PubChemBaseURL, "/"),
		deps: deps{
			cache:    cache,
			cacheTTL: cfg.CacheTTL,
			metrics:  metrics,
			logger:   logger.Named("pubchem"),
		},
	}
}

// Lookup fetches chemistry properties for a compound name.  Any non-success,
// including "compound not found", yields nil.
func (c *PubChemClient) Lookup(ctx context.Context, name string) *PubChemResult {
	key := ProviderPubChem + ":" + strings.ToLower(strings.TrimSpace(name))

	var result PubChemResult
	err := c.cache.GetOrSet(ctx, key, &result, c.cacheTTL,
		func(ctx context.Context) (interface{}, error) {
			if r := c.fetch(ctx, name); r != nil {
				return r, nil
			}
			return nil, nil
		})
	if err != nil {
		return nil
	}
	return &result
}

func (c *PubChemClient) fetch(ctx context.Context, name string) *PubChemResult {
	started := time.Now()

	reqURL := fmt.Sprintf("%s/compound/name/%s/property/%s/JSON",
		c.baseURL, url.PathEscape(name), pubchemFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.record(ProviderPubChem, false, started)
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("pubchem request failed",
			logging.String("name", name), logging.Err(err))
		c.record(ProviderPubChem, false, started)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 404 is the API's "no such compound"; anything else is logged
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("pubchem returned non-ok status",
				logging.String("name", name), logging.Int("status", resp.StatusCode))
		}
		c.record(ProviderPubChem, false, started)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.record(ProviderPubChem, false, started)
		return nil
	}

	var envelope pubchemEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.PropertyTable.Properties) == 0 {
		c.logger.Warn("pubchem response not decodable", logging.String("name", name))
		c.record(ProviderPubChem, false, started)
		return nil
	}

	c.record(ProviderPubChem, true, started)
	return &envelope.PropertyTable.Properties[0]
}
