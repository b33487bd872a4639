package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/pkg/types/material"
)

const matwebPage = `<html><body><table>
<tr><td class="prop-name">Density</td><td class="prop-value">7.99 g/cc</td></tr>
<tr><td class="prop-name">Tensile Strength, Ultimate</td><td class="prop-value">505 MPa</td></tr>
<tr><td class="prop-name">Melting Point</td><td class="prop-value">1375 - 1400 °C</td></tr>
<tr><td class="prop-name">Thermal Conductivity</td><td class="prop-value">16.2 W/m-K</td></tr>
</table></body></html>`

func newMatWebClient(baseURL string) *MatWebClient {
	return NewMatWebClient(config.ProvidersConfig{
		MatWebBaseURL:  baseURL,
		RequestTimeout: 5 * time.Second,
	}, nil, nil, logging.NewNopLogger())
}

func TestMatWebLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/materials/Stainless-Steel-316" {
			w.Write([]byte(matwebPage))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	result := newMatWebClient(srv.URL).Lookup(context.Background(), "stainless steel 316")

	require.NotNil(t, result)
	require.Len(t, result.Properties, 4)
	assert.Equal(t, "Density", result.Properties[0].Name)
	assert.Equal(t, "7.99 g/cc", result.Properties[0].Value)
	assert.Equal(t, srv.URL+"/materials/Stainless-Steel-316", result.PageURL)
}

func TestMatWebLookupTriesVariantsInOrder(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/materials/PTFE" {
			w.Write([]byte(matwebPage))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	result := newMatWebClient(srv.URL).Lookup(context.Background(), "ptfe")

	require.NotNil(t, result)
	// Title-case "Ptfe" misses, raw equals lower here, then UPPERCASE hits
	assert.Equal(t, []string{"/materials/Ptfe", "/materials/ptfe", "/materials/PTFE"}, requested)
}

func TestMatWebLookupNoPageParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>search results, not a datasheet</body></html>"))
	}))
	defer srv.Close()

	assert.Nil(t, newMatWebClient(srv.URL).Lookup(context.Background(), "mystery alloy"))
}

func TestMatWebPropertyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(matwebPage))
	}))
	defer srv.Close()

	result := newMatWebClient(srv.URL).Lookup(context.Background(), "steel")
	require.NotNil(t, result)

	props := result.PropertyList()
	byName := make(map[string]material.Property, len(props))
	for _, p := range props {
		byName[p.Name] = p
		assert.Equal(t, material.SourceMatWeb, p.Source)
	}

	assert.Equal(t, material.CategoryPhysical, byName["Density"].Category)
	assert.Equal(t, material.CategoryMechanical, byName["Tensile Strength, Ultimate"].Category)
	assert.Equal(t, material.CategoryThermal, byName["Melting Point"].Category)
	assert.Equal(t, material.CategoryThermal, byName["Thermal Conductivity"].Category)
}

func TestMatWebCleanCellStripsMarkup(t *testing.T) {
	assert.Equal(t, "505 MPa", cleanCell("  <b>505</b>\n MPa "))
}

func TestSlugVariants(t *testing.T) {
	t.Run("multi-word name", func(t *testing.T) {
		assert.Equal(t, []string{
			"Stainless-Steel-316",
			"stainless-steel-316",
			"STAINLESS-STEEL-316",
		}, SlugVariants("stainless steel 316"))
	})

	t.Run("mixed case input keeps the raw variant", func(t *testing.T) {
		assert.Equal(t, []string{
			"Peek-Polymer",
			"PEEK-polymer",
			"PEEK-POLYMER",
			"peek-polymer",
		}, SlugVariants("PEEK polymer"))
	})

	t.Run("blank", func(t *testing.T) {
		assert.Nil(t, SlugVariants("   "))
	})
}
