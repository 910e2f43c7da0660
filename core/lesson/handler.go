package lesson

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
)

// HandleListByCourse is public: it lists the course outline without
// content URLs.
func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		less, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, less, http.StatusOK)
	}
}

// HandleShowFull returns a lesson with its content URL. Free lessons are
// open; the rest require an enrollment of the session user.
func HandleShowFull(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		les, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !les.Free {
			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			ok, err := IsEnrolled(ctx, db, les.CourseID, clm.Email)
			if err != nil {
				return err
			}
			if !ok {
				return weberr.Forbidden(errors.New("lesson requires an enrollment"))
			}
		}

		resp := struct {
			Lesson
			ContentURL string `json:"contentUrl"`
		}{les, les.ContentURL}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ln LessonNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(ln); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := course.Fetch(ctx, db, ln.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsAdmin(ctx) && !claims.IsUser(ctx, crs.SellerID) {
			return weberr.Forbidden(errors.New("cannot add lessons to another seller's course"))
		}

		now := time.Now().UTC()
		les := Lesson{
			ID:          validate.GenerateID(),
			CourseID:    ln.CourseID,
			Module:      ln.Module,
			Index:       ln.Index,
			Name:        ln.Name,
			Description: ln.Description,
			Free:        ln.Free,
			ContentURL:  ln.ContentURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, les); err != nil {
			return err
		}

		return web.Respond(ctx, w, les, http.StatusCreated)
	}
}

func HandleUpdateProgress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.BadRequest(err)
		}

		now := time.Now().UTC()
		prg := Progress{
			LessonID:  id,
			UserID:    clm.UserID,
			Progress:  up.Progress,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := UpsertProgress(ctx, db, prg); err != nil {
			return err
		}

		return web.Respond(ctx, w, prg, http.StatusOK)
	}
}

// HandleListProgressByCourse returns the session user's progress across a
// course.
func HandleListProgressByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		prgs, err := FetchProgressByCourse(ctx, db, courseID, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, prgs, http.StatusOK)
	}
}
