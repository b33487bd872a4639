package intelligence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/errors"
	"github.com/matsource/matsource/pkg/types/material"
)

// fakeCompleter returns scripted responses in call order, recording the
// prompts it received.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	systems   []string
	users     []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	i := f.calls
	f.calls++
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New(errors.CodeCompletionError, "fake completer exhausted")
}

func newTestService(c Completer) *Service {
	return NewService(c, 15, nil, logging.NewNopLogger())
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		query    string
		want     []string
	}{
		{
			name:     "plain JSON array",
			response: `["polylactic acid", "PLA", "polyhydroxyalkanoates"]`,
			query:    "bioplastics",
			want:     []string{"bioplastics", "polylactic acid", "PLA", "polyhydroxyalkanoates"},
		},
		{
			name:     "array wrapped in markdown fence",
			response: "Here you go:\n```json\n[\"PTFE\", \"Teflon\"]\n```",
			query:    "fluoropolymer",
			want:     []string{"fluoropolymer", "PTFE", "Teflon"},
		},
		{
			name:     "duplicates of the query are dropped case-insensitively",
			response: `["PLA", "pla", "Polylactic Acid", "PLA"]`,
			query:    "PLA",
			want:     []string{"PLA", "Polylactic Acid"},
		},
		{
			name:     "completion failure falls back to the query alone",
			err:      errors.New(errors.CodeCompletionError, "boom"),
			query:    "aerogel",
			want:     []string{"aerogel"},
		},
		{
			name:     "non-JSON response falls back to the query alone",
			response: "I cannot help with that.",
			query:    "aerogel",
			want:     []string{"aerogel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeCompleter{
				responses: []string{tt.response},
				errs:      []error{tt.err},
			})
			got := svc.Expand(context.Background(), tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandCapsAdditionalTerms(t *testing.T) {
	var names []string
	for _, r := range "abcdefghijklmnopqrst" {
		names = append(names, `"term-`+string(r)+`"`)
	}
	svc := NewService(&fakeCompleter{
		responses: []string{"[" + strings.Join(names, ",") + "]"},
	}, 5, nil, logging.NewNopLogger())

	got := svc.Expand(context.Background(), "ceramics")
	require.Len(t, got, 6) // query + 5 expansion terms
	assert.Equal(t, "ceramics", got[0])
	assert.Equal(t, "term-e", got[5])
}

func TestExpandDisabledCompleter(t *testing.T) {
	svc := newTestService(disabledCompleter{})
	got := svc.Expand(context.Background(), "graphene")
	assert.Equal(t, []string{"graphene"}, got)
}

func TestDescription(t *testing.T) {
	t.Run("short response passes through", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			"  PEEK is a high-performance thermoplastic.  ",
		}})
		got, err := svc.Description(context.Background(), "PEEK", "polymer")
		require.NoError(t, err)
		assert.Equal(t, "PEEK is a high-performance thermoplastic.", got)
	})

	t.Run("long response truncated at a word boundary", func(t *testing.T) {
		long := strings.Repeat("tungsten carbide composite ", 20)
		svc := newTestService(&fakeCompleter{responses: []string{long}})
		got, err := svc.Description(context.Background(), "WC", "ceramic")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), maxDescriptionLen)
		assert.False(t, strings.HasSuffix(got, " "))
		// no mid-word cut: the truncated text ends on a complete word
		assert.True(t, strings.HasSuffix(got, "tungsten") ||
			strings.HasSuffix(got, "carbide") ||
			strings.HasSuffix(got, "composite"), "got %q", got)
	})

	t.Run("error propagates", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{errs: []error{
			errors.New(errors.CodeCompletionError, "boom"),
		}})
		_, err := svc.Description(context.Background(), "PEEK", "polymer")
		assert.Error(t, err)
	})
}

func TestSafety(t *testing.T) {
	t.Run("full profile", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`{"hazard_classification": "Non-hazardous", "health_effects": "Dust may irritate",
			  "recommended_ppe": "Dust mask", "cas_number": "9002-88-4"}`,
		}})
		got, err := svc.Safety(context.Background(), "polyethylene")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "9002-88-4", got.CASNumber)
		assert.Equal(t, "Non-hazardous", got.HazardClassification)
	})

	t.Run("partial profile is still usable", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`{"cas_number": "7440-44-0"}`,
		}})
		got, err := svc.Safety(context.Background(), "carbon")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "7440-44-0", got.CASNumber)
		assert.Empty(t, got.RecommendedPPE)
	})

	t.Run("empty object means no result", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{`{}`}})
		got, err := svc.Safety(context.Background(), "unobtainium")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSummaryIncludesRecordContext(t *testing.T) {
	formula := "C3H4O2"
	fake := &fakeCompleter{responses: []string{"A compostable thermoplastic polyester."}}
	svc := newTestService(fake)

	rec := &material.Record{
		Name:            "Polylactic Acid",
		Category:        "bioplastic",
		ChemicalFormula: &formula,
		Properties: []material.Property{
			{Name: "Density", Value: "1.24 g/cm³"},
		},
	}
	got, err := svc.Summary(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "A compostable thermoplastic polyester.", got)
	require.Len(t, fake.users, 1)
	assert.Contains(t, fake.users[0], "Polylactic Acid")
	assert.Contains(t, fake.users[0], "C3H4O2")
	assert.Contains(t, fake.users[0], "Density: 1.24 g/cm³")
}

func TestCommonName(t *testing.T) {
	systematic := "poly(oxy-1,4-phenylene-oxy-1,4-phenylene-carbonyl-1,4-phenylene)"

	t.Run("usable common name", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{`"PEEK"` + "\n"}})
		got, err := svc.CommonName(context.Background(), systematic)
		require.NoError(t, err)
		assert.Equal(t, "PEEK", got)
	})

	t.Run("answer no shorter than the input is rejected", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{systematic + " polymer"}})
		_, err := svc.CommonName(context.Background(), systematic)
		assert.True(t, errors.IsCode(err, errors.CodeCompletionError))
	})

	t.Run("empty answer is rejected", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{"  "}})
		_, err := svc.CommonName(context.Background(), systematic)
		assert.Error(t, err)
	})
}

func TestRegulations(t *testing.T) {
	t.Run("entries attributed to AI analysis", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`["FDA food contact", "EU 10/2011", ""]`,
		}})
		got, err := svc.Regulations(context.Background(), "PLA", "bioplastic",
			[]string{"food packaging"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "FDA food contact", got[0].Name)
		assert.Equal(t, material.SourceAIAnalysis, got[0].Source)
	})

	t.Run("capped at six", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`["a","b","c","d","e","f","g","h"]`,
		}})
		got, err := svc.Regulations(context.Background(), "steel", "metal", nil)
		require.NoError(t, err)
		assert.Len(t, got, maxDerivedRegulations)
	})

	t.Run("unparsable response yields nothing", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{"none apply"}})
		got, err := svc.Regulations(context.Background(), "steel", "metal", nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSustainability(t *testing.T) {
	t.Run("overall recomputed from axes", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`{"renewable": 90, "carbon_footprint": 70, "biodegradability": 85,
			  "toxicity": 80, "overall": 10, "justification": "Bio-based and compostable."}`,
		}})
		got, err := svc.Sustainability(context.Background(), "PLA", "bioplastic", nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		// 0.25*90 + 0.30*70 + 0.25*85 + 0.20*80 = 80.75 → 81
		assert.Equal(t, 81, got.Score)
		assert.Equal(t, material.SourceAIAnalysis, got.Source)
		assert.Equal(t, "Bio-based and compostable.", got.Justification)
	})

	t.Run("out-of-range axes clamped", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`{"renewable": 150, "carbon_footprint": -5, "biodegradability": 50, "toxicity": 50}`,
		}})
		got, err := svc.Sustainability(context.Background(), "x", "metal", nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 100, got.Breakdown.Renewable)
		assert.Equal(t, 0, got.Breakdown.CarbonFootprint)
	})

	t.Run("unparsable response yields nil", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{"no idea"}})
		got, err := svc.Sustainability(context.Background(), "x", "metal", nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestEstimateProperty(t *testing.T) {
	t.Run("value with confidence", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`The estimate: {"value": "2.7 g/cm³", "confidence": 85}`,
		}})
		got, err := svc.EstimateProperty(context.Background(), "aluminum alloy", "Density")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2.7 g/cm³", got.Value)
		assert.Equal(t, 85, got.Confidence)
	})

	t.Run("declined estimate yields nil", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{responses: []string{
			`{"value": "", "confidence": 0}`,
		}})
		got, err := svc.EstimateProperty(context.Background(), "mystery", "Density")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("completion error propagates", func(t *testing.T) {
		svc := newTestService(&fakeCompleter{errs: []error{
			errors.New(errors.CodeCompletionError, "boom"),
		}})
		_, err := svc.EstimateProperty(context.Background(), "x", "Density")
		assert.Error(t, err)
	})
}

func TestFirstJSON(t *testing.T) {
	t.Run("object with nested braces in strings", func(t *testing.T) {
		var m map[string]string
		ok := firstJSONObject(`note first {"k": "a } tricky { value"} trailing`, &m)
		require.True(t, ok)
		assert.Equal(t, "a } tricky { value", m["k"])
	})

	t.Run("skips a false start", func(t *testing.T) {
		var arr []string
		ok := firstJSONArray(`broken [ oops ] then ["ok"]`, &arr)
		require.True(t, ok)
		assert.Equal(t, []string{"ok"}, arr)
	})

	t.Run("nothing to find", func(t *testing.T) {
		var arr []string
		assert.False(t, firstJSONArray("plain prose", &arr))
	})
}

func TestCompletionMetrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	svc := NewService(&fakeCompleter{responses: []string{`["polyamide 6"]`}}, 15, m, logging.NewNopLogger())
	svc.Expand(context.Background(), "nylon")

	// the scripted completer is exhausted, so the next step fails
	_, err = svc.Description(context.Background(), "nylon", "polymer")
	require.Error(t, err)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `completion_requests_total{operation="expand",status="success"} 1`)
	assert.Contains(t, body, `completion_requests_total{operation="description",status="failure"} 1`)
	assert.Contains(t, body, `completion_duration_seconds_count{operation="expand"} 1`)
}
