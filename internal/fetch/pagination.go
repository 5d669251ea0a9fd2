package fetch

import (
	"context"
	"fmt"
)

// Pager drives the search backend one fixed-size page at a time and yields
// candidate URLs until the backend is exhausted. It performs no filesystem or
// state mutation; its only side effect is the outbound page request.
type Pager struct {
	client   SearchClient
	query    string
	pageSize int

	offset   int
	lastLink Candidate
	done     bool
}

// NewPager returns a Pager for one search term.
func NewPager(client SearchClient, query string, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Pager{
		client:   client,
		query:    query,
		pageSize: pageSize,
	}
}

// Next issues one page request at the current offset and returns the
// candidates it yielded. A nil slice with a nil error means the sequence has
// ended: either the backend returned no results or it repeated the last
// candidate of the previous page. A network failure ends the sequence and is
// returned to the caller; the page is never retried.
func (p *Pager) Next(ctx context.Context) ([]Candidate, error) {
	if p.done {
		return nil, nil
	}

	links, err := p.client.Search(ctx, p.query, p.offset)
	if err != nil {
		p.done = true
		return nil, fmt.Errorf("search page at offset %d: %w", p.offset, err)
	}
	if len(links) == 0 {
		// Exhausted: the backend has no more results for this query.
		p.done = true
		return nil, nil
	}
	if links[len(links)-1] == p.lastLink {
		// The backend is repeating itself; no new results.
		p.done = true
		return nil, nil
	}

	p.lastLink = links[len(links)-1]
	p.offset += len(links)
	return links, nil
}

// Done reports whether the sequence has ended.
func (p *Pager) Done() bool {
	return p.done
}
