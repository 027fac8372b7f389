package books

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/books", h.Create)
	r.GET("/books", h.List)
	r.GET("/books/available", h.ListAvailable)
	r.GET("/books/search", h.Search)
	r.GET("/books/isbn/:isbn", h.GetByISBN)
	r.GET("/books/isbn/:isbn/exists", h.ExistsByISBN)
	r.GET("/books/:id", h.Get)
	r.PUT("/books/:id", h.Update)
	r.DELETE("/books/:id", h.Delete)
	r.GET("/authors/:id/books", h.ListByAuthor)
}

func (h *Handler) Create(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBindError(err))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/api/books/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

// GET /books?status=&genre=&author_id=
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			apperr.Respond(c, apperr.Invalid(err.Error()))
			return
		}
		f.Status = st
	}
	f.Genre = strings.TrimSpace(c.Query("genre"))
	f.AuthorID = strings.TrimSpace(c.Query("author_id"))

	res, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListAvailable(c *gin.Context) {
	res, err := h.svc.ListAvailable(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListByAuthor(c *gin.Context) {
	res, err := h.svc.ListByAuthor(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Search(c *gin.Context) {
	res, err := h.svc.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetByISBN(c *gin.Context) {
	res, err := h.svc.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExistsByISBN(c *gin.Context) {
	ok, err := h.svc.ExistsByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": ok})
}

func (h *Handler) Update(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBindError(err))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
