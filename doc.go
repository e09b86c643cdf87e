// Package mir implements the retrieval core of a document search engine:
// a persistent block-linked on-disk store with LRU write-back caches, an
// inverted index with variable-byte/d-gap compressed posting lists, a
// document-at-a-time retrieval pipeline with a bounded top-k heap and
// cascade re-ranking, and a BM25F scoring function over weighted fields.
//
// Tokenization, neural rescoring, and dataset loading are treated as
// external collaborators: mir consumes them through the Tokenizer and
// Scorer contracts rather than implementing them.
package mir
