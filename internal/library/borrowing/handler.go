package borrowing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// lending
	r.POST("/books/:id/borrow", h.Borrow)
	r.PUT("/borrowing-records/:id/return", h.Return)

	// queries
	r.GET("/borrowing-records", h.List)
	r.GET("/borrowing-records/overdue", h.Overdue)
	r.GET("/borrowing-records/by-borrower", h.ByBorrower)
	r.GET("/borrowing-records/status/:status", h.ByStatus)
	r.GET("/borrowing-records/:id", h.Get)
	r.GET("/books/:id/borrowing-history", h.History)
}

// RegisterMaintenance mounts the on-demand sweep. r is expected to be behind auth.
func RegisterMaintenance(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/maintenance/overdue-sweep", h.Sweep)
}

// POST /books/:id/borrow
func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBindError(err))
		return
	}
	res, err := h.svc.Borrow(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/api/borrowing-records/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

// PUT /borrowing-records/:id/return
func (h *Handler) Return(c *gin.Context) {
	res, err := h.svc.Return(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /borrowing-records?status=&borrower_email=&from_date=&to_date=
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
	f.BorrowerEmail = c.Query("borrower_email")

	var err error
	if f.From, err = dateQuery(c, "from_date"); err != nil {
		apperr.Respond(c, err)
		return
	}
	if f.To, err = dateQuery(c, "to_date"); err != nil {
		apperr.Respond(c, err)
		return
	}

	res, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Overdue(c *gin.Context) {
	res, err := h.svc.Overdue(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ByBorrower(c *gin.Context) {
	res, err := h.svc.ByBorrower(c.Request.Context(), c.Query("email"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /borrowing-records/status/:status
func (h *Handler) ByStatus(c *gin.Context) {
	st, err := ParseStatus(c.Param("status"))
	if err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}
	res, err := h.svc.ByStatus(c.Request.Context(), st)
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

func (h *Handler) History(c *gin.Context) {
	res, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /maintenance/overdue-sweep
func (h *Handler) Sweep(c *gin.Context) {
	n, err := h.svc.SweepOverdue(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, SweepResult{Marked: n, Today: clock.FormatDate(clock.Today(h.svc.clock))})
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := clock.ParseDate(v)
	if err != nil {
		return nil, apperr.Invalid(key + " must be a date in " + clock.DateLayout + " format")
	}
	return &t, nil
}
