package gateway

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/dashboard"
	"github.com/referral/referral/internal/platform/auth"
	"github.com/referral/referral/internal/platform/websocket"
)

type Handler struct {
	sessions *Sessions
	hub      *websocket.Hub
}

func NewHandler(sessions *Sessions, hub *websocket.Hub) *Handler {
	return &Handler{sessions: sessions, hub: hub}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
	api.DELETE("/dashboard", h.CloseDashboard)

	tabs := api.Group("/dashboard/tabs/:tab")
	tabs.GET("", h.GetTab)
	tabs.PUT("/filters/:key", h.SetFilter)
	tabs.PUT("/search", h.SetSearch)
	tabs.PUT("/page", h.SetPage)
	tabs.PUT("/sort", h.SetSort)
	tabs.POST("/refresh", h.Refresh)

	tabs.POST("/items", h.CreateItem)
	tabs.GET("/items/:id", h.GetItem)
	tabs.PUT("/items/:id", h.UpdateItem)
	tabs.DELETE("/items/:id", h.DeleteItem)
	tabs.PATCH("/items/:id/status", h.UpdateItemStatus)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleSuperAdmin))
	admin.GET("/sessions", h.SessionStats)
}

func session(c echo.Context) (auth.Session, error) {
	s, ok := auth.SessionFromContext(c.Request().Context())
	if !ok {
		return auth.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return s, nil
}

func (h *Handler) openDashboard(c echo.Context) (*dashboard.Dashboard, error) {
	s, err := session(c)
	if err != nil {
		return nil, err
	}
	d, _, err := h.sessions.Open(s)
	if err != nil {
		return nil, httpError(err)
	}
	return d, nil
}

func (h *Handler) tab(c echo.Context) (dashboard.Tab, error) {
	d, err := h.openDashboard(c)
	if err != nil {
		return nil, err
	}
	t, ok := d.Tab(c.Param("tab"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown tab "+c.Param("tab"))
	}
	return t, nil
}

type tabInfo struct {
	Name     string `json:"name"`
	ReadOnly bool   `json:"readOnly"`
	Version  uint64 `json:"version"`
}

type dashboardResponse struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name,omitempty"`
	Role       auth.Role `json:"role"`
	HospitalID string    `json:"hospitalId,omitempty"`
	Tabs       []tabInfo `json:"tabs"`
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.openDashboard(c)
	if err != nil {
		return err
	}
	s := d.Session()
	resp := dashboardResponse{UserID: s.UserID, Name: s.Name, Role: s.Role, HospitalID: s.HospitalID}
	for _, t := range d.Tabs() {
		resp.Tabs = append(resp.Tabs, tabInfo{Name: t.Name(), ReadOnly: t.ReadOnly(), Version: t.Version()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) CloseDashboard(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	h.sessions.Close(s)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetTab(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t.Snapshot())
}

func (h *Handler) SetFilter(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t.SetFilter(c.Param("key"), body.Value)
	return c.JSON(http.StatusAccepted, t.Snapshot())
}

func (h *Handler) SetSearch(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t.SetSearch(body.Text)
	return c.JSON(http.StatusAccepted, t.Snapshot())
}

func (h *Handler) SetPage(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	var body struct {
		Page int `json:"page"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t.SetPage(body.Page)
	return c.JSON(http.StatusAccepted, t.Snapshot())
}

func (h *Handler) SetSort(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	var body struct {
		Field     string `json:"field"`
		Direction string `json:"direction"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t.SetSort(body.Field, collection.ParseDirection(body.Direction))
	return c.JSON(http.StatusAccepted, t.Snapshot())
}

func (h *Handler) Refresh(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	t.Refresh()
	return c.JSON(http.StatusAccepted, t.Snapshot())
}

func (h *Handler) CreateItem(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	item, err := t.Create(c.Request().Context(), body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	item, err := t.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	item, err := t.Update(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	if err := t.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateItemStatus(c echo.Context) error {
	t, err := h.tab(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item, err := t.UpdateStatus(c.Request().Context(), c.Param("id"), body.Status, body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) SessionStats(c echo.Context) error {
	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	return c.JSON(http.StatusOK, map[string]int{
		"dashboards": h.sessions.Len(),
		"sockets":    clients,
	})
}
