package api

import (
	"art-catalog-service/internal/entity"
	"art-catalog-service/internal/service"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	statusError          = "error"
	statusInvalidPayload = "invalid request payload"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new instance of CatalogHandler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Register mounts the catalog routes on e.
func (h *CatalogHandler) Register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	e.GET("/api/catalog", h.GetCatalog)
	e.POST("/api/catalog", h.AddCatalogItem)
	e.GET("/api/catalog/:id", h.GetCatalogItem)
	e.PUT("/api/catalog/:id", h.UpdateCatalogItem)
	e.POST("/api/catalog/:id", h.UpdateCatalogItem)
	e.DELETE("/api/catalog/:id", h.DeleteCatalogItem)
}

// Root serves the static health check --> /
func (h *CatalogHandler) Root(c echo.Context) error {
	return c.HTML(http.StatusOK, "<u>Hello World</u>")
}

// Health reports whether the record store is reachable --> /health
func (h *CatalogHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.catalogService.Ping(ctx); err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"service": "art-catalog-service",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetCatalog lists every item --> GET /api/catalog
func (h *CatalogHandler) GetCatalog(c echo.Context) error {
	items, err := h.catalogService.RetrieveAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": statusError})
	}

	return c.JSON(http.StatusOK, items)
}

// GetCatalogItem gets a single item --> GET /api/catalog/:id
func (h *CatalogHandler) GetCatalogItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	item, found, err := h.catalogService.RetrieveByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"item_id": id, "status": statusError})
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]int{"item_id": id})
	}

	return c.JSON(http.StatusOK, item)
}

// AddCatalogItem creates an item from the request body --> POST /api/catalog
func (h *CatalogHandler) AddCatalogItem(c echo.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": statusInvalidPayload})
	}

	id, err := h.catalogService.Create(c.Request().Context(), fields)
	if err != nil {
		if msg, ok := validationStatus(err); ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"status": msg})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": statusError})
	}

	return c.JSON(http.StatusCreated, map[string]int64{"item_id": id})
}

// UpdateCatalogItem applies the request body to an item --> PUT|POST /api/catalog/:id
func (h *CatalogHandler) UpdateCatalogItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	fields, err := bindFields(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"item_id": id, "status": statusInvalidPayload})
	}

	n, err := h.catalogService.Update(c.Request().Context(), id, fields)
	if err != nil {
		if msg, ok := validationStatus(err); ok {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"item_id": id, "status": msg})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"item_id": id, "status": statusError})
	}
	if n == 0 {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"item_id": id, "status": statusError})
	}

	res := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		res[k] = v
	}
	res["item_id"] = id
	res["status"] = "updated"
	return c.JSON(http.StatusOK, res)
}

// DeleteCatalogItem removes an item --> DELETE /api/catalog/:id
func (h *CatalogHandler) DeleteCatalogItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	n, err := h.catalogService.Delete(c.Request().Context(), id)
	switch {
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"item_id": id, "status": statusError})
	case n == 0:
		return c.JSON(http.StatusNotFound, map[string]int{"item_id": id})
	default:
		return c.JSON(http.StatusOK, map[string]interface{}{"item_id": id, "status": "deleted"})
	}
}

// itemID parses the :id path parameter. Anything but an integer does not
// name an item, so the route answers 404.
func itemID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

// bindFields decodes the body as a single JSON object, keeping numbers as
// json.Number so integers and floats reach the store as sent.
func bindFields(c echo.Context) (entity.Fields, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()

	var fields entity.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

func validationStatus(err error) (string, bool) {
	switch {
	case errors.Is(err, entity.ErrUnknownField):
		return entity.ErrUnknownField.Error(), true
	case errors.Is(err, entity.ErrInvalidType):
		return entity.ErrInvalidType.Error(), true
	case errors.Is(err, service.ErrEmptyFields):
		return service.ErrEmptyFields.Error(), true
	}
	return "", false
}
