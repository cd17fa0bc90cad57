package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/quiz"
)

type quizApi struct {
	baseApi
	svc   *quiz.Service
	clubs clubManager
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *quiz.Service, clubs clubManager) {
	api := quizApi{baseApi: base, svc: svc, clubs: clubs}

	qg := g.Group("/quizzes", jwt)
	qg.GET("", api.query)
	qg.POST("", api.create, managerMiddleware())
	qg.GET("/attempts", api.attempts)
	qg.GET("/:id", api.retrieve)
	qg.DELETE("/:id", api.destroy, managerMiddleware())
	qg.POST("/:id/attempts", api.submit)
}

// query lists the quizzes, of one club with `?club=`. Answers are only shown to the
// managers of that club.
func (api *quizApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	clubID := ctx.QueryParam("club")
	showAnswers := claims.IsAdmin
	if !showAnswers && clubID != "" && claims.IsLead {
		if showAnswers, err = api.clubs.CanManage(ctx.Request().Context(), clubID, claims.Subject, false); err != nil {
			return errors.Wrap(err, "checking club management")
		}
	}

	qs, err := api.svc.Query(ctx.Request().Context(), clubID, claims.Subject, showAnswers)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	if qs == nil {
		qs = []quiz.Quiz{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *quizApi) create(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data quiz.NewQuiz
	if err := api.bind(ctx, &data, "NewQuiz"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := mustManage(ctx, api.clubs, data.ClubID, claims); err != nil {
		return err
	}

	q, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	api.pub.publish(ctx, broadcast.Quizzes, broadcast.OpCreate, q.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	q, err := api.svc.Get(reqCtx, ctx.Param("id"), claims.Subject, true)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	manager, err := api.clubs.CanManage(reqCtx, q.ClubID, claims.Subject, claims.IsAdmin)
	if err != nil {
		return errors.Wrap(err, "checking club management")
	}
	if !manager {
		q = q.Public()
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	q, err := api.svc.Get(ctx.Request().Context(), id, "", false)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	if err := mustManage(ctx, api.clubs, q.ClubID, claims); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	api.pub.publish(ctx, broadcast.Quizzes, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *quizApi) submit(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data quiz.Submission
	if err := api.bind(ctx, &data, "Submission"); err != nil {
		return err
	}

	a, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	api.pub.publish(ctx, broadcast.Quizzes, broadcast.OpUpdate, a.QuizID, nil, nil)
	return ctx.JSON(http.StatusCreated, a)
}

// attempts lists the attempts of the context user, of one quiz with `?quiz=`.
func (api *quizApi) attempts(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	as, err := api.svc.Attempts(ctx.Request().Context(), claims.Subject, ctx.QueryParam("quiz"))
	if err != nil {
		return errors.Wrap(err, "listing attempts")
	}
	if as == nil {
		as = []quiz.Attempt{}
	}
	return ctx.JSON(http.StatusOK, as)
}
