package database

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/press-comb/app/content"
)

// PostRepository handles database operations for posts
type PostRepository struct {
	db      *DB
	baseURL string
}

func NewPostRepository(db *DB, baseURL string) *PostRepository {
	return &PostRepository{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

const postColumns = `p.id, p.type, p.status, p.slug, p.title, p.content, p.excerpt,
	p.author_id, p.parent_id, p.menu_order, p.published_at, p.modified_at`

func scanPost(row interface{ Scan(...any) error }) (content.Post, error) {
	var p content.Post
	var modified sql.NullTime

	err := row.Scan(&p.ID, &p.Type, &p.Status, &p.Slug, &p.Title, &p.Content, &p.Excerpt,
		&p.AuthorID, &p.ParentID, &p.MenuOrder, &p.PublishedAt, &modified)
	if err != nil {
		return p, err
	}

	if modified.Valid {
		p.ModifiedAt = &modified.Time
	}
	return p, nil
}

// GetPost returns nil when the post does not exist
func (r *PostRepository) GetPost(ctx context.Context, id int64) (*content.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)

	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

// QueryPosts returns the posts matching filter after defaults are applied
func (r *PostRepository) QueryPosts(ctx context.Context, filter content.Filter) ([]content.Post, error) {
	f := filter.Normalized()

	where := []string{"p.type = ?", "p.status = ?"}
	args := []any{f.Type, f.Status}

	if f.ParentID != nil {
		where = append(where, "p.parent_id = ?")
		args = append(args, *f.ParentID)
	}
	if f.AuthorID != 0 {
		where = append(where, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		where = append(where, `(p.title LIKE ? ESCAPE '\' OR p.excerpt LIKE ? ESCAPE '\' OR p.content LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if f.MetaKey != "" {
		clause := `EXISTS (SELECT 1 FROM meta m WHERE m.namespace = ? AND m.object_id = p.id AND m.meta_key = ?`
		args = append(args, content.DefaultNamespace, f.MetaKey)
		if f.MetaValue != "" {
			clause += ` AND m.meta_value = ?`
			args = append(args, f.MetaValue)
		}
		where = append(where, clause+")")
	}

	// OrderBy and Order are whitelisted by Normalized
	query := `SELECT ` + postColumns + ` FROM posts p WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY p.` + f.OrderBy + ` ` + f.Order + `, p.id ` + f.Order

	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// Permalink builds the public URL of a post. Posts and pages live at the
// root, other types under their type name. Missing posts give "".
func (r *PostRepository) Permalink(ctx context.Context, id int64) (string, error) {
	var postType, slug string
	err := r.db.QueryRowContext(ctx, `SELECT type, slug FROM posts WHERE id = ?`, id).Scan(&postType, &slug)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get permalink: %w", err)
	}

	if postType == content.DefaultPostType || postType == "page" {
		return fmt.Sprintf("%s/%s/", r.baseURL, slug), nil
	}
	return fmt.Sprintf("%s/%s/%s/", r.baseURL, postType, slug), nil
}

// InsertPost stores a hand-authored post. The slug is made unique within the post type.
func (r *PostRepository) InsertPost(ctx context.Context, p content.Post) (int64, error) {
	p.Type = cmp.Or(p.Type, content.DefaultPostType)
	p.Status = cmp.Or(p.Status, content.DefaultStatus)
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	slug, err := uniqueSlug(ctx, tx, p.Type, cmp.Or(p.Slug, content.Slugify(p.Title)))
	if err != nil {
		return 0, err
	}

	var modified any
	if p.ModifiedAt != nil {
		modified = p.ModifiedAt.UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (type, status, slug, title, content, excerpt, author_id, parent_id, menu_order, published_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Type, p.Status, slug, p.Title, p.Content, p.Excerpt, p.AuthorID, p.ParentID, p.MenuOrder,
		p.PublishedAt.UTC(), modified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get post id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit post: %w", err)
	}
	return id, nil
}

// CheckDuplicate reports whether a source already holds an entry with the given content hash
func (r *PostRepository) CheckDuplicate(ctx context.Context, sourceName, contentHash string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM posts p
		JOIN sources s ON s.id = p.source_id
		WHERE s.name = ? AND p.content_hash = ?
		LIMIT 1
	`, sourceName, contentHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return true, nil
}

// UpsertSourcePost stores an ingested entry together with its metadata and
// categories field. Entries are matched by source and GUID. Content that was
// already replaced by extraction is kept.
func (r *PostRepository) UpsertSourcePost(ctx context.Context, sourceName string, sp SourcePost) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sourceID int64
	var postType string
	err = tx.QueryRowContext(ctx, `SELECT id, post_type FROM sources WHERE name = ?`, sourceName).Scan(&sourceID, &postType)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("source %q not found", sourceName)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get source: %w", err)
	}

	status := content.DefaultStatus
	if sp.IsFiltered {
		status = StatusFiltered
	}

	publishedAt := sp.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}
	var modified any
	if sp.ModifiedAt != nil {
		modified = sp.ModifiedAt.UTC()
	}

	var postID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE source_id = ? AND guid = ?`, sourceID, sp.GUID).Scan(&postID)
	switch {
	case err == sql.ErrNoRows:
		slug, err := uniqueSlug(ctx, tx, postType, cmp.Or(sp.Slug, content.Slugify(sp.Title)))
		if err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO posts (type, status, slug, title, content, excerpt, source_id, guid, link,
				content_hash, filter_reason, published_at, modified_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, postType, status, slug, sp.Title, sp.Content, sp.Excerpt, sourceID, sp.GUID, sp.Link,
			sp.ContentHash, sp.FilterReason, publishedAt.UTC(), modified)
		if err != nil {
			return 0, fmt.Errorf("failed to insert source post: %w", err)
		}
		postID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get post id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to look up source post: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE posts
			SET status = ?, title = ?, excerpt = ?, link = ?, content_hash = ?, filter_reason = ?,
				content = CASE WHEN extraction_status = ? THEN content ELSE ? END,
				published_at = ?, modified_at = ?
			WHERE id = ?
		`, status, sp.Title, sp.Excerpt, sp.Link, sp.ContentHash, sp.FilterReason,
			ExtractionSuccess, sp.Content, publishedAt.UTC(), modified, postID)
		if err != nil {
			return 0, fmt.Errorf("failed to update source post: %w", err)
		}
	}

	meta := map[string][]string{
		"source": {sourceName},
		"guid":   {sp.GUID},
		"link":   {sp.Link},
		"author": sp.Authors,
	}
	if sp.EnclosureURL != "" {
		meta["enclosure_url"] = []string{sp.EnclosureURL}
		meta["enclosure_type"] = []string{sp.EnclosureType}
		meta["enclosure_length"] = []string{strconv.FormatInt(sp.EnclosureLength, 10)}
	}
	for key, values := range meta {
		if err := replaceMeta(ctx, tx, content.DefaultNamespace, postID, key, values); err != nil {
			return 0, err
		}
	}

	categories := sp.Categories
	if categories == nil {
		categories = []string{}
	}
	err = upsertField(ctx, tx, postID, FieldDefinition{
		Key:   "field_categories",
		Name:  "categories",
		Label: "Categories",
		Type:  "checkbox",
	}, categories)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit source post: %w", err)
	}

	return postID, nil
}

// GetSourcePosts returns every entry of a source including filtered ones
func (r *PostRepository) GetSourcePosts(ctx context.Context, sourceName string) ([]StoredSourcePost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, COALESCE(p.guid, ''), p.slug, p.link, p.title, p.excerpt, p.content,
			p.published_at, p.content_hash, p.status = ?, p.filter_reason,
			COALESCE((SELECT value FROM fields f WHERE f.post_id = p.id AND f.name = 'categories'), '[]')
		FROM posts p
		JOIN sources s ON s.id = p.source_id
		WHERE s.name = ?
		ORDER BY p.published_at DESC, p.id DESC
	`, StatusFiltered, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get source posts: %w", err)
	}
	defer rows.Close()

	var posts []StoredSourcePost
	for rows.Next() {
		var sp StoredSourcePost
		var categories string
		err := rows.Scan(&sp.ID, &sp.GUID, &sp.Slug, &sp.Link, &sp.Title, &sp.Excerpt, &sp.Content,
			&sp.PublishedAt, &sp.ContentHash, &sp.IsFiltered, &sp.FilterReason, &categories)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source post row: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &sp.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories of post %d: %w", sp.ID, err)
		}
		posts = append(posts, sp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source post rows: %w", err)
	}

	for i := range posts {
		authors, err := metaValues(ctx, r.db, content.DefaultNamespace, posts[i].ID, "author")
		if err != nil {
			return nil, err
		}
		posts[i].Authors = authors
	}

	return posts, nil
}

func (r *PostRepository) UpdateFilterStatus(ctx context.Context, postID int64, isFiltered bool, reason string) error {
	status := content.DefaultStatus
	if isFiltered {
		status = StatusFiltered
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = ?, filter_reason = ? WHERE id = ?
	`, status, reason, postID)
	if err != nil {
		return fmt.Errorf("failed to update post filter status: %w", err)
	}

	return nil
}

func (r *PostRepository) GetSourceStats(ctx context.Context, sourceName string) (SourceStats, error) {
	var stats SourceStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN p.status != ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = ? THEN 1 ELSE 0 END), 0)
		FROM posts p
		JOIN sources s ON s.id = p.source_id
		WHERE s.name = ?
	`, StatusFiltered, StatusFiltered, sourceName).Scan(&stats.Total, &stats.Visible, &stats.Filtered)
	if err != nil {
		return stats, fmt.Errorf("failed to get source stats: %w", err)
	}

	return stats, nil
}

// GetPostsForExtraction returns visible entries whose full content has not been fetched yet
func (r *PostRepository) GetPostsForExtraction(ctx context.Context, sourceName string, limit int) ([]PostForExtraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.link
		FROM posts p
		JOIN sources s ON s.id = p.source_id
		WHERE s.name = ?
		  AND p.status != ?
		  AND p.extraction_status = ?
		  AND p.link != ''
		ORDER BY p.published_at DESC
		LIMIT ?
	`, sourceName, StatusFiltered, ExtractionPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts for extraction: %w", err)
	}
	defer rows.Close()

	var posts []PostForExtraction
	for rows.Next() {
		var p PostForExtraction
		if err := rows.Scan(&p.ID, &p.Link); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) UpdateExtractionStatus(ctx context.Context, postID int64, status string, extractedAt time.Time, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET extraction_status = ?, extracted_at = ?, extraction_error = ?
		WHERE id = ?
	`, status, extractedAt.UTC(), errMsg, postID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}

func (r *PostRepository) UpdateExtractedContent(ctx context.Context, postID int64, body string, extractedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET content = ?, extraction_status = ?, extracted_at = ?, extraction_error = '', modified_at = ?
		WHERE id = ?
	`, body, ExtractionSuccess, extractedAt.UTC(), extractedAt.UTC(), postID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	return nil
}

// uniqueSlug appends -2, -3, ... to base until no post of postType uses it.
func uniqueSlug(ctx context.Context, ex execer, postType, base string) (string, error) {
	base = cmp.Or(base, "untitled")

	candidate := base
	for n := 2; ; n++ {
		var one int
		err := ex.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE type = ? AND slug = ?`, postType, candidate).Scan(&one)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
