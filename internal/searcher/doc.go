// Package searcher ranks lost and found items against free-text queries.
//
// The searcher provides four modes:
//   - Hybrid: weighted blend of fuzzy and vector scores (default)
//   - Fuzzy: weighted fuzzy string ratio over description and location
//   - Vector: cosine similarity of the query embedding to item text vectors
//   - Admin: hybrid over archived items too, plus approved-match counterparts
//
// # Basic Usage
//
//	s := searcher.New(store, model, cfg.Search, logger)
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query:   "black wallet",
//	    Mode:    searcher.ModeHybrid,
//	    Options: searcher.Options{Status: types.StatusFound, Limit: 20},
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%.2f %s (%s)\n", r.Score, r.Item.Description, r.Item.Location)
//	}
//
// Queries are trimmed; anything shorter than two characters yields an
// empty result.
//
// # Hybrid Scoring
//
// Fuzzy and vector rankings are computed concurrently over the same
// candidate set, each keeping scores down to 0.15 over three times the
// requested limit. Results are joined by item id:
//
//	score = fuzzy*0.4 + vector*0.6
//
// A side that did not retrieve an item contributes 0. Blended scores under
// the minimum (0.3 by default) are dropped. Both weights and the minimum
// come from config.SearchConfig.
//
// # Degradation
//
// Search embeds the query with the text model. When the model is not
// loaded or the backend fails, Response.Degraded is set and the request
// is answered from fuzzy scores alone.
//
// # Caching
//
// Responses are cached per normalized request in an LRU with a TTL. The
// service layer calls InvalidateCache after every item or match write.
package searcher
