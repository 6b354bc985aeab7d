package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
)

// UserIDHeader carries the id of the authenticated account, set by the auth proxy.
const UserIDHeader = "X-User-ID"

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindAllocationExhausted:
		return http.StatusServiceUnavailable
	case errs.KindPartialFailure:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Unclassified errors are logged and hidden.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, errorResponse{Error: "internal server error"})
		return
	}

	resp := errorResponse{Error: err.Error(), Kind: string(kind)}
	var e *errs.Error
	if errors.As(err, &e) {
		resp.Field = e.Field
		if e.Msg != "" {
			resp.Error = e.Msg
		}
	}
	logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Kind: string(errs.KindInvalidArgument)})
}
