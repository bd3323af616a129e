package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/webserver"
)

func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/search", searchProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
	webserver.ApiPOST("/products/bulk", bulkImportProducts)
	webserver.ApiPOST("/products/import", importProductsCsv)
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiPOST("/categories", createCategory)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := catalog.ListFilter{
		CategoryID: cast.ToInt64(c.QueryParam("category_id")),
		Page:       page,
		PageSize:   pageSize,
	}
	rows, total, err := GetAppContext(c).CatalogStore().ListProducts(filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func searchProducts(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	rows, err := GetAppContext(c).CatalogStore().SearchProducts(q)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to search products", err.Error())
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Preload("Category").Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var spec catalog.ProductSpec
	if err := c.Bind(&spec); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	product, err := GetAppContext(c).CatalogStore().CreateProduct(spec)
	if err != nil {
		return failCatalog(c, err)
	}
	return ok(c, product)
}

type productUpdatePayload struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	CustomID    *string  `json:"custom_id"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"image_url"`
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}

	app := GetAppContext(c)
	var p domain.Product
	if err := app.DB().Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "VALIDATION", "Product name cannot be empty", nil)
		}
		p.Name = name
	}
	if payload.Price != nil {
		if *payload.Price < 0 {
			return fail(c, http.StatusBadRequest, "VALIDATION", "Price cannot be negative", nil)
		}
		p.Price = *payload.Price
	}
	if payload.Stock != nil {
		if *payload.Stock < 0 {
			return fail(c, http.StatusBadRequest, "VALIDATION", "Stock cannot be negative", nil)
		}
		p.Stock = *payload.Stock
	}
	if payload.Category != nil {
		cat, err := app.CatalogStore().FindOrCreateCategory(*payload.Category)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve category", err.Error())
		}
		p.CategoryID = cat.ID
	}
	if payload.CustomID != nil {
		cid := strings.TrimSpace(*payload.CustomID)
		if cid == "" {
			p.CustomID = nil
		} else {
			var count int64
			if err := app.DB().Model(&domain.Product{}).
				Where("custom_id = ? and id <> ?", cid, p.ID).Count(&count).Error; err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check custom ID", err.Error())
			}
			if count > 0 {
				return failCatalog(c, catalog.ErrDuplicateCustomID{CustomID: cid})
			}
			p.CustomID = &cid
		}
	}
	if payload.Description != nil {
		p.Description = *payload.Description
	}
	if payload.ImageURL != nil {
		p.ImageURL = *payload.ImageURL
	}

	if err := app.DB().Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	return ok(c, echo.Map{"deleted": cast.ToString(id)})
}

func bulkImportProducts(c echo.Context) error {
	var records []catalog.ProductSpec
	if err := c.Bind(&records); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse import records", err.Error())
	}
	report := GetAppContext(c).CatalogStore().BulkImport(records)
	return ok(c, report)
}

// importProductsCsv accepts a multipart CSV upload with the same columns as
// the JSON bulk import.
func importProductsCsv(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing upload file", err.Error())
	}
	src, err := file.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to open upload file", err.Error())
	}
	defer src.Close()

	var records []catalog.ProductSpec
	if err := gocsv.Unmarshal(src, &records); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse CSV", err.Error())
	}
	report := GetAppContext(c).CatalogStore().BulkImport(records)
	return ok(c, report)
}

func listCategories(c echo.Context) error {
	var rows []domain.Category
	if err := GetDB(c).Order("name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, rows)
}

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Category name is required", err.Error())
	}
	cat, err := GetAppContext(c).CatalogStore().FindOrCreateCategory(payload.Name)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	return ok(c, cat)
}

// failCatalog maps catalog errors onto HTTP responses.
func failCatalog(c echo.Context, err error) error {
	var (
		vErr  catalog.ErrValidation
		dErr  catalog.ErrDuplicateCustomID
		nfErr catalog.ErrProductNotFound
	)
	switch {
	case errors.As(err, &vErr):
		return fail(c, http.StatusBadRequest, "VALIDATION", vErr.Error(), nil)
	case errors.As(err, &dErr):
		return fail(c, http.StatusConflict, "DUPLICATE_CUSTOM_ID", dErr.Error(), nil)
	case errors.As(err, &nfErr):
		return fail(c, http.StatusNotFound, "NOT_FOUND", nfErr.Error(), nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Catalog operation failed", err.Error())
	}
}
