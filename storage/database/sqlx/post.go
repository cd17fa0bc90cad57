package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/post"
	"github.com/nexussync/clubs/core/tags"
)

type postRow struct {
	ID          string      `db:"id"`
	ClubID      string      `db:"club_id"`
	ClubName    string      `db:"club_name"`
	AuthorID    null.String `db:"author_id"`
	AuthorName  null.String `db:"author_name"`
	Content     string      `db:"content"`
	ContentHTML string      `db:"content_html"`
	Tags        tags.List   `db:"tags"`
	Likes       core.Count  `db:"likes"`
	Comments    core.Count  `db:"comments"`
	Liked       bool        `db:"liked"`
	Bookmarked  bool        `db:"bookmarked"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r postRow) post() post.Post {
	return post.Post{
		ID:          r.ID,
		ClubID:      r.ClubID,
		ClubName:    r.ClubName,
		AuthorID:    r.AuthorID.String,
		AuthorName:  r.AuthorName.String,
		Content:     r.Content,
		ContentHTML: r.ContentHTML,
		Tags:        r.Tags,
		Likes:       r.Likes,
		Comments:    r.Comments,
		Liked:       r.Liked,
		Bookmarked:  r.Bookmarked,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// postSelect needs the viewer id as first and second arguments.
const postSelect = `SELECT p.id, p.club_id, c.name AS club_name, p.author_id, u.name AS author_name,
	p.content, p.content_html, p.tags, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS likes,
	(SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id) AS comments,
	EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?) AS liked,
	EXISTS (SELECT 1 FROM post_bookmarks b WHERE b.post_id = p.id AND b.user_id = ?) AS bookmarked
	FROM posts p
	JOIN clubs c ON c.id = p.club_id
	LEFT JOIN users u ON u.id = p.author_id`

type postRepository struct {
	db *sqlx.DB
}

var _ post.Repository = (*postRepository)(nil) // interface compliance check

func NewPostRepository(db *sqlx.DB) *postRepository {
	return &postRepository{db: db}
}

func (repo *postRepository) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	q := repo.db.Rebind(`INSERT INTO posts (id, club_id, author_id, content, content_html, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q, p.ID, p.ClubID, nullString(p.AuthorID), p.Content, p.ContentHTML,
		tags.Normalize(p.Tags), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return post.Post{}, errors.Wrap(err, "inserting post")
	}
	return repo.GetPost(ctx, p.ID, p.AuthorID)
}

func (repo *postRepository) QueryPosts(ctx context.Context, filter post.QueryFilter, orderings []core.DBOrdering, viewerID string) ([]post.Post, error) {
	var c conds
	c.args = append(c.args, viewerID, viewerID)
	if filter.ClubID != "" {
		c.add("p.club_id = ?", filter.ClubID)
	}
	if filter.AuthorID != "" {
		c.add("p.author_id = ?", filter.AuthorID)
	}
	if filter.Tag != "" {
		c.add("LOWER(p.tags)"+likeOp, likeTag(filter.Tag))
	}
	if filter.Search != "" {
		val := like(filter.Search)
		c.add("(LOWER(p.content)"+likeOp+" OR LOWER(c.name)"+likeOp+" OR LOWER(u.name)"+likeOp+" OR LOWER(p.tags)"+likeOp+")",
			val, val, val, val)
	}
	if filter.BookmarkedOnly {
		c.add("EXISTS (SELECT 1 FROM post_bookmarks bb WHERE bb.post_id = p.id AND bb.user_id = ?)", viewerID)
	}

	q := postSelect + c.where() + " ORDER BY " + core.OrderBy(orderings, "created_at DESC")
	var rows []postRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), c.args...); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	posts := make([]post.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.post())
	}
	return posts, nil
}

func (repo *postRepository) GetPost(ctx context.Context, id, viewerID string) (post.Post, error) {
	var row postRow
	q := repo.db.Rebind(postSelect + " WHERE p.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, viewerID, viewerID, id); err != nil {
		return post.Post{}, trapNoRows(err, post.ErrNotFound, "getting post")
	}
	return row.post(), nil
}

func (repo *postRepository) DeletePosts(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "posts", "id", ids)
}

// setFlag inserts or removes the (post, user) row of a like or bookmark table.
func (repo *postRepository) setFlag(ctx context.Context, table, postID, userID string, on bool) error {
	var q string
	var args []interface{}
	if on {
		q = "INSERT INTO " + table + " (post_id, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT (post_id, user_id) DO NOTHING"
		args = []interface{}{postID, userID, time.Now().UTC()}
	} else {
		q = "DELETE FROM " + table + " WHERE post_id = ? AND user_id = ?"
		args = []interface{}{postID, userID}
	}
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return errors.Wrapf(err, "updating %s", table)
}

func (repo *postRepository) SetLike(ctx context.Context, postID, userID string, liked bool) error {
	return repo.setFlag(ctx, "post_likes", postID, userID, liked)
}

func (repo *postRepository) SetBookmark(ctx context.Context, postID, userID string, bookmarked bool) error {
	return repo.setFlag(ctx, "post_bookmarks", postID, userID, bookmarked)
}

type commentRow struct {
	ID         string      `db:"id"`
	PostID     string      `db:"post_id"`
	AuthorID   null.String `db:"author_id"`
	AuthorName null.String `db:"author_name"`
	Body       string      `db:"body"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r commentRow) comment() post.Comment {
	return post.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		AuthorID:   r.AuthorID.String,
		AuthorName: r.AuthorName.String,
		Body:       r.Body,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

const commentSelect = `SELECT cm.id, cm.post_id, cm.author_id, u.name AS author_name, cm.body, cm.created_at
	FROM comments cm LEFT JOIN users u ON u.id = cm.author_id`

func (repo *postRepository) CreateComment(ctx context.Context, c post.Comment) (post.Comment, error) {
	q := repo.db.Rebind("INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.PostID, nullString(c.AuthorID), c.Body, c.CreatedAt.UTC()); err != nil {
		return post.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return repo.GetComment(ctx, c.ID)
}

func (repo *postRepository) QueryComments(ctx context.Context, postID string) ([]post.Comment, error) {
	var rows []commentRow
	q := repo.db.Rebind(commentSelect + " WHERE cm.post_id = ? ORDER BY cm.created_at ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, postID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]post.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, nil
}

func (repo *postRepository) GetComment(ctx context.Context, id string) (post.Comment, error) {
	var row commentRow
	q := repo.db.Rebind(commentSelect + " WHERE cm.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return post.Comment{}, trapNoRows(err, post.ErrCommentNotFound, "getting comment")
	}
	return row.comment(), nil
}

func (repo *postRepository) DeleteComment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM comments WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return post.ErrCommentNotFound
	}
	return nil
}

