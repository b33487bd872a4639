package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
)

const expandSystemPrompt = `You are a materials science search assistant. ` +
	`Given a material query, return a JSON array of up to 15 related search terms: ` +
	`specific material names, common synonyms, trade names, and well-known members ` +
	`when the query names a category. Return ONLY the JSON array of strings, no prose.`

// Expand turns one user query into a bounded set of related search terms.
// The returned slice always starts with the original query; at most
// maxExpansionTerms additional terms follow in provider output order.
//
// Expansion is a relevance enhancer, never a hard dependency: on any failure
// (no credential, network, malformed output) the result is just [query].
func (s *Service) Expand(ctx context.Context, query string) []string {
	out := []string{query}

	resp, err := s.complete(ctx, "expand", expandSystemPrompt,
		fmt.Sprintf("Query: %q", query))
	if err != nil {
		s.logger.Warn("query expansion failed; searching with original term only",
			logging.String("query", query), logging.Err(err))
		return out
	}

	var terms []string
	if !firstJSONArray(resp, &terms) {
		s.logger.Warn("query expansion returned no parsable JSON array",
			logging.String("query", query))
		return out
	}

	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(query)): {}}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) > s.maxExpansionTerms {
			break
		}
	}

	s.logger.Debug("query expanded",
		logging.String("query", query), logging.Int("terms", len(out)))
	return out
}
