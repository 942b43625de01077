// Package entity defines the domain types shared by the ingestion pipeline,
// the cache repositories and the read API.
package entity

import (
	"sort"
	"time"
)

// ArticleStatusSummarized is the status carried by every article produced
// from a successful summarization.
const ArticleStatusSummarized = "summarized"

// MaxHeadlineRunes bounds the normalized headline length.
const MaxHeadlineRunes = 100

// Article is a summarized channel message as it is stored in the cache and
// served by the read API.
type Article struct {
	// ID is the source message id. It is the dedupe key of the collection.
	ID int64 `json:"id"`
	// APIID is assigned once from the API-ID counter and never reused.
	APIID    int64     `json:"apiId"`
	Headline string    `json:"headline"`
	Body     string    `json:"body"`
	Source   string    `json:"source"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
}

// MergeArticles returns a new collection containing a in place of any entry
// with the same ID, sorted newest-id-first and trimmed to capacity.
// Entries beyond capacity (the oldest ids) are dropped.
func MergeArticles(existing []Article, a Article, capacity int) []Article {
	out := make([]Article, 0, len(existing)+1)
	for _, e := range existing {
		if e.ID == a.ID {
			continue
		}
		out = append(out, e)
	}
	out = append(out, a)
	SortNewestFirst(out)
	if capacity > 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// SortNewestFirst orders articles by descending message id.
func SortNewestFirst(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].ID > articles[j].ID
	})
}

// OldestID returns the smallest message id in the collection, or 0 when empty.
func OldestID(articles []Article) int64 {
	var oldest int64
	for _, a := range articles {
		if oldest == 0 || a.ID < oldest {
			oldest = a.ID
		}
	}
	return oldest
}
