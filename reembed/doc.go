// Package reembed replaces the embeddings of a space's chunks, for example
// after switching embedding models. Texts, concepts and edges are untouched,
// so the graph and the lexical index stay valid.
package reembed
