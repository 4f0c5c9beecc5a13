package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Content Types
// -----------------------------------------------------------------------------

// Post is a blog article.
type Post struct {
	ID         uuid.UUID
	Title      string
	Slug       string // URL key, unique
	Excerpt    string
	Content    string // Markdown body
	CoverImage string // Optional, empty when unset
	Tags       []string
	Views      int64
	Likes      int64
	Published  bool
	CreatedAt  time.Time
}

// Entry is a visitor-authored text record: a comment on a post or a guestbook message.
type Entry struct {
	ID         uuid.UUID
	PostID     *uuid.UUID // Set for comments, nil for guestbook messages
	ParentID   *uuid.UUID // Replied-to comment, nil for top-level
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

// Like marks that a visitor liked a post. At most one row exists per (PostID, VisitorFingerprint).
type Like struct {
	PostID             uuid.UUID
	VisitorFingerprint string
}

// PageView is a single recorded visit.
type PageView struct {
	PageURL    string
	PageTitle  string
	Referrer   string
	UserAgent  string
	DeviceType string // "mobile", "tablet" or "desktop"
}

// -----------------------------------------------------------------------------
// Market Types
// -----------------------------------------------------------------------------

// Direction is the short-lived price movement annotation.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// String returns "none" for DirectionNone.
func (d Direction) String() string {
	if d == DirectionNone {
		return "none"
	}
	return string(d)
}

// Ticker is a normalized 24h ticker update from either the stream or the REST fallback.
type Ticker struct {
	Symbol           string          // e.g. "BTCUSDT"
	LastPrice        decimal.Decimal // Last traded price
	PercentChange24h decimal.Decimal // Rolling 24h change in percent
}

// PriceSnapshot is the latest known state for one instrument.
type PriceSnapshot struct {
	Symbol           string
	Price            decimal.Decimal
	ChangePercent24h decimal.Decimal
	Direction        Direction // Cleared to DirectionNone after the flash window
	UpdatedAt        time.Time
}
