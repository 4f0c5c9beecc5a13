package engage

import (
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

// Collections.
const (
	CollPosts     = "posts"
	CollComments  = "post_comments"
	CollGuestbook = "guestbook"
	CollLikes     = "post_likes"
	CollPageViews = "page_views"
)

func postFromRecord(r store.Record) model.Post {
	id, _ := r.UUID("id")
	return model.Post{
		ID:         id,
		Title:      r.String("title"),
		Slug:       r.String("slug"),
		Excerpt:    r.String("excerpt"),
		Content:    r.String("content"),
		CoverImage: r.String("cover_image"),
		Tags:       r.Strings("tags"),
		Views:      r.Int64("views"),
		Likes:      r.Int64("likes"),
		Published:  r.Bool("published"),
		CreatedAt:  r.Time("created_at"),
	}
}

func entryFromRecord(r store.Record) model.Entry {
	id, _ := r.UUID("id")
	return model.Entry{
		ID:         id,
		PostID:     r.UUIDPtr("post_id"),
		ParentID:   r.UUIDPtr("parent_id"),
		AuthorName: r.String("name"),
		Body:       r.String("content"),
		CreatedAt:  r.Time("created_at"),
	}
}

func entriesFromRecords(rs []store.Record) []model.Entry {
	out := make([]model.Entry, len(rs))
	for i, r := range rs {
		out[i] = entryFromRecord(r)
	}
	return out
}
