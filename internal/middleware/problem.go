package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "rcslicense/internal/errors"
)

func writeProblem(w http.ResponseWriter, r *http.Request, problem *apierrors.ProblemDetails) {
	render.Status(r, problem.Status)
	render.JSON(w, r, problem)
}
