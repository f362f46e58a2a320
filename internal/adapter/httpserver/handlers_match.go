package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/billiards-bug/scoreboard/internal/domain"
	apperrors "github.com/billiards-bug/scoreboard/internal/platform/errors"
)

type scoreRequest struct {
	Player int    `json:"player"`
	Action string `json:"action"`
}

// Confirm stays untyped so that anything but a literal true counts as
// "not confirmed" instead of a malformed body.
type resetRequest struct {
	Confirm any `json:"confirm"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleGetMatch(c echo.Context) error {
	m := s.matches.CurrentMatch(c.Request().Context())
	if err := c.JSON(http.StatusOK, m); err != nil {
		return fmt.Errorf("failed to write match response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateMatch(c echo.Context) error {
	var update domain.MatchUpdate
	if err := bindJSON(c, &update); err != nil {
		return err
	}

	if err := s.matches.UpdateMatch(c.Request().Context(), update); err != nil {
		return matchError(err, "Failed to update match")
	}
	return writeSuccess(c)
}

func (s *Server) handleChangeScore(c echo.Context) error {
	var req scoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := s.matches.ChangeScore(c.Request().Context(), req.Player, req.Action); err != nil {
		return matchError(err, "Failed to update score")
	}
	return writeSuccess(c)
}

func (s *Server) handleResetScores(c echo.Context) error {
	var req resetRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	confirmed := req.Confirm == true
	if err := s.matches.ResetScores(c.Request().Context(), confirmed); err != nil {
		return matchError(err, "Failed to reset scores")
	}
	return writeSuccess(c)
}

func bindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperrors.ValidationError("Invalid request body").WithField("cause", err.Error())
	}
	return nil
}

func writeSuccess(c echo.Context) error {
	if err := c.JSON(http.StatusOK, successResponse{Success: true}); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// matchError maps gateway errors to client-facing ones. Anything not
// caused by the request itself is reported with failure.
func matchError(err error, failure string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPlayer):
		return apperrors.ValidationError("Invalid player number")
	case errors.Is(err, domain.ErrInvalidAction):
		return apperrors.ValidationError("Invalid action")
	case errors.Is(err, domain.ErrInvalidArgument):
		return apperrors.ValidationError("Invalid request")
	case errors.Is(err, domain.ErrNotConfirmed):
		return apperrors.ValidationError("Reset not confirmed")
	case errors.Is(err, domain.ErrRevisionConflict):
		return apperrors.ConflictError("Match was changed by another request, please retry", err)
	default:
		return apperrors.InternalError(failure, err)
	}
}
