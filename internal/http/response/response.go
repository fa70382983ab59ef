// Package response is the envelope every handler replies with, shared
// across success and error paths so clients get one shape to parse.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error   APIError `json:"error"`
	TraceID string   `json:"trace_id,omitempty"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error:   APIError{Message: msg, Code: code},
		TraceID: c.GetString("trace_id"),
	})
}

// statusClientClosedRequest is nginx's de facto extension for "the caller
// cancelled the request"; net/http defines no constant for 499.
const statusClientClosedRequest = 499

// RespondKindError maps an apierr.Kind to the HTTP status it deserves and
// writes the error envelope. Any error not carrying a recognized Kind is
// treated as internal. Failures attributable to an external dependency
// (download, decode, analyze) map to 502; failures in our own write path
// (materialize, persistence) map to 500.
func RespondKindError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apierr.KindInputInvalid:
		status = http.StatusBadRequest
	case apierr.KindDuplicate:
		status = http.StatusConflict
	case apierr.KindDownloadFailed, apierr.KindDecodeFailed, apierr.KindAnalyzeFailed:
		status = http.StatusBadGateway
	case apierr.KindMaterializeFailed, apierr.KindPersistenceFailed:
		status = http.StatusInternalServerError
	case apierr.KindCancelled:
		status = statusClientClosedRequest
	}
	RespondError(c, status, string(kind), err)
}
