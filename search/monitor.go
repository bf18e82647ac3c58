package search

import (
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/websearch"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Hooks run synchronously on the searching goroutine.
type SearchMonitor interface {
	Start(queryID, query string)
	AfterRephrase(rephrased string)
	AfterWebSearch(results []websearch.Result)
	AfterFetch(docs []core.ChunkDocument)
	AfterRerank(docs []core.ChunkDocument)
	Finish(answer *Answer)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                   {}
func (n *noopMonitor) AfterRephrase(_ string)              {}
func (n *noopMonitor) AfterWebSearch(_ []websearch.Result) {}
func (n *noopMonitor) AfterFetch(_ []core.ChunkDocument)   {}
func (n *noopMonitor) AfterRerank(_ []core.ChunkDocument)  {}
func (n *noopMonitor) Finish(_ *Answer)                    {}
