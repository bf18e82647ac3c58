package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/search"
	"github.com/poiesic/inquirit/storage"
	"github.com/poiesic/inquirit/websearch"
)

func printAnswer(w io.Writer, answer *search.Answer) {
	fmt.Fprintln(w, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, doc := range answer.Sources {
		fmt.Fprintf(w, "  [%d] %s\n      %s\n", i+1, doc.Metadata.Title, doc.Metadata.URL)
	}
}

func printConversations(w io.Writer, list []storage.Conversation) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No conversations")
		return
	}
	for _, c := range list {
		fmt.Fprintf(w, "%-30s %4d turns  %s\n", c.ID, c.Turns, c.LastActive.Local().Format(time.DateTime))
	}
}

func printTurns(w io.Writer, turns []core.Turn) {
	for _, t := range turns {
		fmt.Fprintf(w, "[%s] %s: %s\n", t.Timestamp.Local().Format(time.DateTime), t.Speaker, t.Content)
	}
}

// progressMonitor prints each pipeline stage as it completes.
type progressMonitor struct {
	w     io.Writer
	start time.Time
}

var _ search.SearchMonitor = (*progressMonitor)(nil)

func newProgressMonitor(w io.Writer) *progressMonitor {
	return &progressMonitor{w: w}
}

func (p *progressMonitor) Start(queryID, query string) {
	p.start = time.Now()
	fmt.Fprintf(p.w, "query %s: %s\n", queryID, query)
}

func (p *progressMonitor) AfterRephrase(rephrased string) {
	if rephrased == "" {
		fmt.Fprintln(p.w, "  no search needed")
		return
	}
	fmt.Fprintf(p.w, "  searching for %q\n", rephrased)
}

func (p *progressMonitor) AfterWebSearch(results []websearch.Result) {
	fmt.Fprintf(p.w, "  %d results\n", len(results))
}

func (p *progressMonitor) AfterFetch(docs []core.ChunkDocument) {
	fmt.Fprintf(p.w, "  %d chunks fetched\n", len(docs))
}

func (p *progressMonitor) AfterRerank(docs []core.ChunkDocument) {
	fmt.Fprintf(p.w, "  %d chunks kept\n", len(docs))
}

func (p *progressMonitor) Finish(answer *search.Answer) {
	fmt.Fprintf(p.w, "  done in %s\n\n", time.Since(p.start).Round(time.Millisecond))
}
