// Package embedder turns item descriptions and images into vectors.
//
// Three vectors are produced per item:
//
//   - text: 384-dim vector from the text model, used for text-to-text
//     matching and vector search
//   - cross-modal text: 768-dim vector of the description in the shared
//     text/image space
//   - image: 768-dim vector of the photo in the same shared space
//
// # Lifecycle
//
// A Model starts Unloaded. Load tries the backend once and flips the
// model to Ready; every encode on an unloaded model returns ErrNotReady.
// Search treats ErrNotReady as a signal to fall back to fuzzy ranking.
//
//	model, err := embedder.New(cfg.Embeddings, logger)
//	if err != nil {
//	    return err
//	}
//	if err := model.Load(ctx); err != nil {
//	    logger.Warn().Err(err).Msg("embeddings unavailable")
//	}
//
//	bundle, err := model.Bundle(ctx, "black leather wallet", imageBytes)
//
// # Backends
//
// The jina backend calls the Jina AI embeddings API, using
// jina-embeddings-v3 for text and jina-clip-v2 for the cross-modal space.
// Transient failures are retried with exponential backoff; 4xx responses
// other than 429 are not retried.
//
// The local backend needs no network. It hashes words and character
// trigrams for text and encodes a 16x16 thumbnail for images, which is
// enough for development and tests but carries no real semantics.
//
// # Caching
//
// Vectors are cached in an LRU keyed by vector kind and the SHA-256 of the
// content. Cached vectors are copied on the way in and out.
package embedder
