package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/post"
)

type postApi struct {
	baseApi
	svc   *post.Service
	clubs clubManager
}

func registerPostAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *post.Service, clubs clubManager) {
	api := postApi{baseApi: base, svc: svc, clubs: clubs}

	pg := g.Group("/posts", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.DELETE("/:id", api.destroy)
	pg.POST("/:id/like", api.like)
	pg.POST("/:id/bookmark", api.bookmark)
	pg.GET("/:id/comments", api.comments)
	pg.POST("/:id/comments", api.comment)
	pg.DELETE("/:id/comments/:cid", api.destroyComment)
}

func (api *postApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	filter := post.QueryFilter{
		ClubID:   ctx.QueryParam("club"),
		AuthorID: ctx.QueryParam("author"),
		Tag:      ctx.QueryParam("tag"),
		Search:   ctx.QueryParam("search"),
	}
	if b := queryBool(ctx, "bookmarked"); b != nil {
		filter.BookmarkedOnly = *b
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	posts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

// create publishes a post in a club the context user belongs to or manages.
func (api *postApi) create(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data post.NewPost
	if err := api.bind(ctx, &data, "NewPost"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	member, err := api.clubs.IsMember(reqCtx, data.ClubID, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "checking membership")
	}
	if !member {
		if err := mustManage(ctx, api.clubs, data.ClubID, claims); err != nil {
			return err
		}
	}

	p, err := api.svc.Create(reqCtx, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	api.pub.publish(ctx, broadcast.Posts, broadcast.OpCreate, p.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *postApi) retrieve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) destroy(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if err := api.svc.Delete(ctx.Request().Context(), id, claims.Subject, claims.IsAdmin); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	api.pub.publish(ctx, broadcast.Posts, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *postApi) like(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.ToggleLike(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "toggling like")
	}
	api.pub.publish(ctx, broadcast.Posts, broadcast.OpUpdate, p.ID, nil, nil)
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) bookmark(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.ToggleBookmark(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "toggling bookmark")
	}
	// bookmarks are private: nobody else needs to reload
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) comments(ctx echo.Context) error {
	comments, err := api.svc.Comments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	if comments == nil {
		comments = []post.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *postApi) comment(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data post.NewComment
	if err := api.bind(ctx, &data, "NewComment"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	api.pub.publish(ctx, broadcast.Comments, broadcast.OpCreate, c.ID, nil, nil)
	api.pub.publish(ctx, broadcast.Posts, broadcast.OpUpdate, c.PostID, nil, nil)
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpCreate, "", nil, nil)
	return ctx.JSON(http.StatusCreated, c)
}

func (api *postApi) destroyComment(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	cid := ctx.Param("cid")
	if err := api.svc.DeleteComment(ctx.Request().Context(), cid, claims.Subject, claims.IsAdmin); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	api.pub.publish(ctx, broadcast.Comments, broadcast.OpDelete, cid, nil, nil)
	api.pub.publish(ctx, broadcast.Posts, broadcast.OpUpdate, ctx.Param("id"), nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}
