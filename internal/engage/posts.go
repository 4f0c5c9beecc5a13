package engage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

// ErrSlugTaken is returned when a post's slug collides with another post.
var ErrSlugTaken = errors.New("slug already in use")

// Posts manages blog posts.
type Posts struct {
	deps     Deps
	comments *Comments
	likes    *Likes
}

// ListOptions selects a page of posts.
type ListOptions struct {
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// PostList is one page of posts plus the total number matching.
type PostList struct {
	Posts []model.Post
	Total int64
}

// List returns posts newest first.
func (p *Posts) List(ctx context.Context, opts ListOptions) (PostList, error) {
	var f store.Filter
	if !opts.IncludeDrafts {
		f = store.Where(store.Eq("published", true))
	}

	g, ctx := errgroup.WithContext(ctx)
	var rs []store.Record
	var total int64
	g.Go(func() error {
		var err error
		rs, err = p.deps.Store.Query(ctx, CollPosts, store.Query{
			Filter: f,
			Order:  store.NewestFirst,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.deps.Store.Count(ctx, CollPosts, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return PostList{}, fmt.Errorf("list posts: %w", err)
	}

	out := PostList{Posts: make([]model.Post, len(rs)), Total: total}
	for i, r := range rs {
		out.Posts[i] = postFromRecord(r)
	}
	return out, nil
}

// BySlug returns the post with slug, or store.ErrNotFound.
func (p *Posts) BySlug(ctx context.Context, slug string) (model.Post, error) {
	return p.one(ctx, store.Where(store.Eq("slug", slug)))
}

// ByID returns the post with id, or store.ErrNotFound.
func (p *Posts) ByID(ctx context.Context, id uuid.UUID) (model.Post, error) {
	return p.one(ctx, store.Where(store.Eq("id", id)))
}

func (p *Posts) one(ctx context.Context, f store.Filter) (model.Post, error) {
	rs, err := p.deps.Store.Query(ctx, CollPosts, store.Query{Filter: f, Limit: 1})
	if err != nil {
		return model.Post{}, err
	}
	if len(rs) == 0 {
		return model.Post{}, store.ErrNotFound
	}
	return postFromRecord(rs[0]), nil
}

// PostPage is everything shown on a post's page.
type PostPage struct {
	Post     model.Post
	Comments []model.Entry
	Liked    bool
}

// Page loads a published post with its comments and the visitor's like state,
// and counts the view.
func (p *Posts) Page(ctx context.Context, slug string) (PostPage, error) {
	post, err := p.BySlug(ctx, slug)
	if err != nil {
		return PostPage{}, err
	}
	if !post.Published {
		return PostPage{}, store.ErrNotFound
	}

	page := PostPage{Post: post}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.Comments, err = p.comments.List(gctx, post.ID)
		return err
	})
	g.Go(func() error {
		var err error
		page.Liked, err = p.likes.IsLiked(gctx, post.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PostPage{}, fmt.Errorf("load post %s: %w", slug, err)
	}

	if err := p.RecordView(ctx, post.ID); err != nil {
		p.deps.Logger.Warn("failed to count post view", "post_id", post.ID, "error", err)
	} else {
		page.Post.Views++
	}
	return page, nil
}

// RecordView increments the post's view counter.
func (p *Posts) RecordView(ctx context.Context, id uuid.UUID) error {
	return p.deps.Store.Increment(ctx, CollPosts, store.Where(store.Eq("id", id)), "views", 1)
}

// PostInput is the admin editor form.
type PostInput struct {
	Title      string
	Slug       string // derived from Title when empty
	Excerpt    string
	Content    string
	CoverImage string
	Tags       string // comma separated
	Published  bool
}

func (in PostInput) record() (store.Record, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return nil, fmt.Errorf("cannot derive a slug from title %q", title)
	}

	rec := store.Record{
		"title":     title,
		"slug":      slug,
		"excerpt":   in.Excerpt,
		"content":   in.Content,
		"tags":      ParseTags(in.Tags),
		"published": in.Published,
	}
	if in.CoverImage != "" {
		rec["cover_image"] = in.CoverImage
	}
	return rec, nil
}

// Create inserts a new post.
func (p *Posts) Create(ctx context.Context, in PostInput) (model.Post, error) {
	rec, err := in.record()
	if err != nil {
		return model.Post{}, err
	}
	rec["views"] = int64(0)
	rec["likes"] = int64(0)

	saved, err := p.deps.Store.Insert(ctx, CollPosts, rec)
	if errors.Is(err, store.ErrUniqueness) {
		return model.Post{}, fmt.Errorf("%w: %s", ErrSlugTaken, rec.String("slug"))
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}
	return postFromRecord(saved), nil
}

// Update replaces the editable fields of post id.
func (p *Posts) Update(ctx context.Context, id uuid.UUID, in PostInput) error {
	rec, err := in.record()
	if err != nil {
		return err
	}
	if _, ok := rec["cover_image"]; !ok {
		rec["cover_image"] = ""
	}

	err = p.deps.Store.Update(ctx, CollPosts, store.Where(store.Eq("id", id)), rec)
	if errors.Is(err, store.ErrUniqueness) {
		return fmt.Errorf("%w: %s", ErrSlugTaken, rec.String("slug"))
	}
	return err
}

// Delete removes post id.
func (p *Posts) Delete(ctx context.Context, id uuid.UUID) error {
	return p.deps.Store.Delete(ctx, CollPosts, store.Where(store.Eq("id", id)))
}

// SetPublished publishes or unpublishes post id.
func (p *Posts) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return p.deps.Store.Update(ctx, CollPosts, store.Where(store.Eq("id", id)), store.Record{"published": published})
}

// TogglePublished flips the published flag and returns the new value.
func (p *Posts) TogglePublished(ctx context.Context, id uuid.UUID) (bool, error) {
	post, err := p.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	if err := p.SetPublished(ctx, id, !post.Published); err != nil {
		return post.Published, err
	}
	return !post.Published, nil
}

var (
	slugSpace   = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
	slugDashes  = regexp.MustCompile(`--+`)
)

// Slugify derives a URL slug from a title: lowercase, whitespace runs become
// "-", characters other than ASCII letters, digits, "_" and "-" are dropped
// and repeated dashes collapse.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	return slugDashes.ReplaceAllString(s, "-")
}

// ParseTags splits a comma separated list, trimming entries and dropping empty ones.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
