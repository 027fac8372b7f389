package labels

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/books/labels.csv", h.Export)
}

// GET /books/labels.csv?status=&genre=&author_id=&encoding=cp932&header=false
func (h *Handler) Export(c *gin.Context) {
	var f books.Filter
	if v := c.Query("status"); v != "" {
		st, err := books.ParseStatus(v)
		if err != nil {
			apperr.Respond(c, apperr.Invalid(err.Error()))
			return
		}
		f.Status = st
	}
	f.Genre = strings.TrimSpace(c.Query("genre"))
	f.AuthorID = strings.TrimSpace(c.Query("author_id"))

	enc, err := ParseEncoding(c.Query("encoding"))
	if err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	header, err := strconv.ParseBool(c.DefaultQuery("header", "true"))
	if err != nil {
		apperr.Respond(c, apperr.Invalid("header must be true or false"))
		return
	}

	file, err := h.svc.Export(c.Request.Context(), f, Options{Encoding: enc, Header: header})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("X-Label-Count", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
