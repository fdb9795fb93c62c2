package search

import (
	"context"
	"fmt"

	"github.com/gogotex/ocrsearch/internal/document/repository"
)

// RecentLimit is the size of the recent-activity feed.
const RecentLimit = 50

type RecentItem struct {
	ID         int64  `json:"id"`
	PageNumber int    `json:"page_number"`
	Filename   string `json:"filename"`
	Snippet    string `json:"snippet"`
}

type RecentResponse struct {
	Total   int64        `json:"total"`
	Results []RecentItem `json:"results"`
}

// Recent lists the newest pages by id with a leading preview of their text,
// plus the total number of pages.
func Recent(ctx context.Context, store repository.Store) (RecentResponse, error) {
	total, err := store.CountPages(ctx)
	if err != nil {
		return RecentResponse{}, fmt.Errorf("recent: %w", err)
	}
	rows, err := store.RecentPages(ctx, RecentLimit)
	if err != nil {
		return RecentResponse{}, fmt.Errorf("recent: %w", err)
	}
	out := RecentResponse{Total: total, Results: make([]RecentItem, 0, len(rows))}
	for _, r := range rows {
		out.Results = append(out.Results, RecentItem{
			ID:         r.PageID,
			PageNumber: r.PageNumber,
			Filename:   r.Filename,
			Snippet:    Preview(r.Text()),
		})
	}
	return out, nil
}
