package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

// MenuController serves the locally cached catalog. It never calls the remote.
type MenuController struct {
	Ledger *services.Ledger
}

func NewMenuController(ledger *services.Ledger) *MenuController {
	return &MenuController{Ledger: ledger}
}

// GetAllMenus -> katalog produk, opsional filter ?category= dan ?low_stock=true
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	lowStock := c.Query("low_stock") == "true"

	products := mc.Ledger.Catalog()
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if lowStock && !p.IsLowStock() {
			continue
		}
		filtered = append(filtered, p)
	}

	utils.RespondJSON(c, http.StatusOK, "Catalog", gin.H{
		"products":  filtered,
		"loaded_at": mc.Ledger.CatalogLoadedAt(),
	})
}

// GetMenuByID -> detail satu produk
func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid product id"))
		return
	}

	product, ok := mc.Ledger.Product(uint(id))
	if !ok {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("product %d not found", id))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product", product)
}

// GetCategories -> daftar kategori unik dari katalog
func (mc *MenuController) GetCategories(c *gin.Context) {
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, p := range mc.Ledger.Catalog() {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	utils.RespondJSON(c, http.StatusOK, "Categories", categories)
}
