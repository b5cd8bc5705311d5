package search

import (
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/lexical"
)

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
type RetrievalMonitor interface {
	Start(query, space string)
	AfterLexicalSearch(hits []lexical.Hit)
	AfterVectorSearch(hits []*core.ScoredChunk)
	SourceFailed(source Source, err error)
	Duplicate(text string, source Source)
	Finish(result *Retrieval)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                       {}
func (n *noopMonitor) AfterLexicalSearch(_ []lexical.Hit)      {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ScoredChunk) {}
func (n *noopMonitor) SourceFailed(_ Source, _ error)          {}
func (n *noopMonitor) Duplicate(_ string, _ Source)            {}
func (n *noopMonitor) Finish(_ *Retrieval)                     {}
