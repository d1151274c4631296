package handlers

import (
	"log/slog"
	"net/http"

	"habitat-server/internal/catalog"
	"habitat-server/internal/shared/errors"
	"habitat-server/internal/shared/response"
)

type CatalogResponse struct {
	ModuleTypes []catalog.ModuleType `json:"module_types"`
	Shapes      []catalog.Shape      `json:"shapes"`
}

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "catalog")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	response.Success(w, http.StatusOK, CatalogResponse{
		ModuleTypes: h.catalog.Types(),
		Shapes:      h.catalog.Shapes(),
	})
}
