package dto

import (
	"strings"
	"time"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// QuoteResponse is the wire form of a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// AddQuoteRequest is the body of POST /quotes.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notblank,max=2000"`
	Category string `json:"category" validate:"required,notblank,max=100"`
}

// Normalize trims both fields, so limits apply to what gets stored.
func (r *AddQuoteRequest) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
	r.Category = strings.TrimSpace(r.Category)
}

// ListQuotesQuery holds the filter query parameters.
type ListQuotesQuery struct {
	Category string `form:"category" validate:"max=100"`
	Search   string `form:"q"        validate:"max=200"`
}

// Normalize trims the category; search text is matched trimmed downstream.
func (q *ListQuotesQuery) Normalize() {
	q.Category = strings.TrimSpace(q.Category)
}

// QuoteListResponse is a filtered view of the collection.
type QuoteListResponse struct {
	Quotes   []QuoteResponse `json:"quotes"`
	Count    int             `json:"count"`
	Total    int             `json:"total"`
	Category string          `json:"category"`
	Search   string          `json:"search"`
}

// ImportResponse reports how many quotes were appended.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// CategoriesResponse is the category index.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// PreferencesResponse carries the saved filter inputs.
type PreferencesResponse struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

// SyncResponse describes a finished sync.
type SyncResponse struct {
	Added      int    `json:"added"`
	Updated    int    `json:"updated"`
	Total      int    `json:"total"`
	Trigger    string `json:"trigger"`
	Message    string `json:"message"`
	SyncedAt   int64  `json:"syncedAt"`
	DurationMS int64  `json:"durationMs"`
}

// SyncStatusResponse is a snapshot of the synchronizer.
type SyncStatusResponse struct {
	State        string        `json:"state"`
	LastOutcome  string        `json:"lastOutcome,omitempty"`
	LastResult   *SyncResponse `json:"lastResult,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
	LastSync     int64         `json:"lastSync"`
	LastSyncTime string        `json:"lastSyncTime,omitempty"`
	Polling      bool          `json:"polling"`
	Interval     string        `json:"interval,omitempty"`
}

// NoticeResponse is the visible notice.
type NoticeResponse struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice of domain quotes. The result is never nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// NewSyncResponse converts a sync summary.
func NewSyncResponse(s app.SyncSummary) *SyncResponse {
	msg := app.MsgSynced
	if s.Unchanged() {
		msg = app.MsgUpToDate
	}

	return &SyncResponse{
		Added:      s.Added,
		Updated:    s.Updated,
		Total:      s.Total,
		Trigger:    string(s.Trigger),
		Message:    msg,
		SyncedAt:   s.SyncedAt.UnixMilli(),
		DurationMS: s.Duration.Milliseconds(),
	}
}

// NewSyncStatusResponse converts a synchronizer snapshot. A zero last sync
// renders as 0 with no timestamp.
func NewSyncStatusResponse(s app.SyncStatus) SyncStatusResponse {
	resp := SyncStatusResponse{
		State:       string(s.State),
		LastOutcome: string(s.LastOutcome),
		LastError:   s.LastError,
		Polling:     s.Polling,
	}

	if s.LastResult != nil {
		resp.LastResult = NewSyncResponse(*s.LastResult)
	}

	if !s.LastSync.IsZero() {
		resp.LastSync = s.LastSync.UnixMilli()
		resp.LastSyncTime = s.LastSync.UTC().Format(time.RFC3339)
	}

	if s.Interval > 0 {
		resp.Interval = s.Interval.String()
	}

	return resp
}

// NewNoticeResponse converts a notice.
func NewNoticeResponse(n domain.Notice) NoticeResponse {
	return NoticeResponse{Level: string(n.Level), Message: n.Message, Detail: n.Detail}
}
