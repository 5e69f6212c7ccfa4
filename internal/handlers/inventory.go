// internal/handlers/inventory.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/services"
	"github.com/ovenside/bakery-backend/internal/utils"
)

type InventoryHandler struct {
	inventoryService *services.InventoryService
}

func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// GET /inventory/ingredients
func (h *InventoryHandler) ListIngredients(c *gin.Context) {
	params := services.IngredientSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if productIDStr := c.Query("product_id"); productIDStr != "" {
		if productID, err := uuid.Parse(productIDStr); err == nil {
			params.ProductID = &productID
		}
	}

	if status := c.Query("status"); status != "" {
		stockStatus := models.StockStatus(status)
		params.Status = &stockStatus
	}

	if name := c.Query("name"); name != "" {
		params.Name = name
	}

	ingredients, total, err := h.inventoryService.ListIngredients(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(ingredients, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /inventory/ingredients/:id
func (h *InventoryHandler) GetIngredient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ingredient ID", nil)
		return
	}

	ingredient, err := h.inventoryService.GetIngredient(id)
	if err != nil {
		if errors.Is(err, services.ErrIngredientNotFound) {
			utils.NotFoundResponse(c, "ingredient")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"ingredient": ingredient,
	})
}

// POST /inventory/ingredients/:id/restock
func (h *InventoryHandler) RestockIngredient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ingredient ID", nil)
		return
	}

	var req services.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	ingredient, err := h.inventoryService.Restock(id, &req)
	if err != nil {
		if errors.Is(err, services.ErrIngredientNotFound) {
			utils.NotFoundResponse(c, "ingredient")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"ingredient": ingredient,
	})
}

// POST /inventory/restock
//
// Restocks by ingredient name; every matching row across products is updated.
func (h *InventoryHandler) RestockByName(c *gin.Context) {
	var req struct {
		services.RestockRequest
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if req.Name == "" {
		utils.BadRequestResponse(c, "name is required", nil)
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req.RestockRequest)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	ingredients, err := h.inventoryService.RestockByName(req.Name, &req.RestockRequest)
	if err != nil {
		if errors.Is(err, services.ErrIngredientNotFound) {
			utils.NotFoundResponse(c, "ingredient")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"ingredients": ingredients,
	})
}

// GET /inventory/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var ingredientID *uuid.UUID
	if idStr := c.Query("ingredient_id"); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			ingredientID = &id
		}
	}

	movements, total, err := h.inventoryService.ListMovements(ingredientID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(movements, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /inventory/alerts
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	unresolvedOnly := true
	if allStr := c.Query("include_resolved"); allStr != "" {
		if includeResolved, err := strconv.ParseBool(allStr); err == nil && includeResolved {
			unresolvedOnly = false
		}
	}

	alerts, total, err := h.inventoryService.ListAlerts(unresolvedOnly, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(alerts, total, params)
	utils.PaginatedResponse(c, result)
}

// PUT /inventory/alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert ID", nil)
		return
	}

	if err := h.inventoryService.ResolveAlert(id); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "alert resolved",
	})
}
