package handler

import (
	"errors"
	"net/http"

	"pomi/internal/apperror"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail answers with the status mapped from err. Server-side failures are
// logged; classified storage errors keep their database message, anything
// else is hidden behind a generic one.
func fail(c *gin.Context, log *zap.Logger, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			msg = "Erreur interne, réessayez plus tard"
		}
	}
	_ = c.Error(err)
	c.JSON(status, response.Invalid(status, msg, apperror.Fields(err)))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Requête invalide : "+err.Error()))
}
