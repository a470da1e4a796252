// Package retrieval implements the query answering pipeline: embed the
// question, find the most similar corpus chunks, and generate an answer
// grounded in them.
//
// # Pipeline Flow
//
// One invocation of Answer runs these steps in order:
//
//	Query (trimmed, validated)
//	     |
//	     v
//	Embedding (query text -> vector)
//	     |
//	     v
//	Vector Search (index kNN; full-scan cosine fallback)
//	     |
//	     v
//	Context Assembly (ranked SOURCE blocks)
//	     |
//	     v
//	Chat Completion (deterministic decoding)
//	     |
//	     v
//	Result (answer + ranked sources)
//
// The three remote calls are strictly sequential; each depends on the
// previous step's output. Nothing is retried, and a failure in generation
// discards already computed search results.
//
// # Search Fallback
//
// The primary search path asks the store's vector index for the k nearest
// chunks. Any primary failure, regardless of cause, switches the invocation
// to a brute-force scan: load every chunk, score it with cosine similarity
// against the query vector in-process, sort, and keep the top k. The
// primary error is logged and absorbed, never surfaced to callers. Only a
// failure of the fallback itself ends the invocation.
//
// The scan loads the whole corpus into memory and is acceptable only for
// small corpora; Store implementations may bound it.
//
// # Error Classification
//
// Failures carry one of the package sentinels (ErrInvalidInput,
// ErrNotConfigured, ErrEmbedding, ErrGeneration) in their chain so HTTP
// handlers can map them to statuses with errors.Is. Fallback-scan failures
// carry no sentinel and are treated as internal errors.
//
// # Usage
//
//	pipeline, err := retrieval.New(store, client, client, logger, retrieval.Config{
//	    TopK:    4,
//	    MaxTopK: 20,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := pipeline.Answer(ctx, "What languages does the candidate know?", 2)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Answer)
//
// Store, Embedder and Generator are consumer-defined interfaces; production
// wiring satisfies them with *corpus.Store and *llm.Client, tests with
// in-memory fakes.
package retrieval
