// internal/api/errors.go
package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse is the body of every non-2xx answer.
type ErrResponse struct {
	HTTPStatusCode int    `json:"status"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
)

func errBadRequest(msg string) render.Renderer {
	return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Code: codeBadRequest, Message: msg}
}

func errNotFound(msg string) render.Renderer {
	return &ErrResponse{HTTPStatusCode: http.StatusNotFound, Code: codeNotFound, Message: msg}
}
