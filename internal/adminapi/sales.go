package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/sales"
	"github.com/openretail/proshop/internal/webserver"
)

func registerSaleRoutes() {
	// Checkout runs on the public group: the register keeps selling even when
	// the session token is stale, with attribution falling back to admin.
	webserver.PubPOST("/checkout", checkout)
	webserver.ApiGET("/sales", listSales)
	webserver.ApiGET("/sales/:id", getSale)
}

func checkout(c echo.Context) error {
	var req sales.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout request", err.Error())
	}

	token := c.Request().Header.Get(echo.HeaderAuthorization)
	sale, err := GetAppContext(c).SaleRecorder().Checkout(c.Request().Context(), token, req)
	if err != nil {
		return failCheckout(c, err)
	}
	return ok(c, sale)
}

func failCheckout(c echo.Context, err error) error {
	var (
		stockErr catalog.ErrInsufficientStock
		nfErr    catalog.ErrProductNotFound
		vErr     catalog.ErrValidation
	)
	switch {
	case errors.Is(err, sales.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Cart has no items", nil)
	case errors.Is(err, sales.ErrTotalMismatch):
		return fail(c, http.StatusUnprocessableEntity, "TOTAL_MISMATCH", "Cart total does not match its items", nil)
	case errors.Is(err, sales.ErrCommitConflict):
		return fail(c, http.StatusConflict, "COMMIT_CONFLICT", "Checkout could not be committed, try again", nil)
	case errors.As(err, &stockErr):
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", stockErr.Error(), echo.Map{
			"product_id": cast.ToString(stockErr.ProductID),
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &nfErr):
		return fail(c, http.StatusNotFound, "NOT_FOUND", nfErr.Error(), nil)
	case errors.As(err, &vErr):
		return fail(c, http.StatusBadRequest, "VALIDATION", vErr.Error(), nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Checkout failed", err.Error())
	}
}

func listSales(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := sales.ListFilter{
		UserID:   cast.ToInt64(c.QueryParam("user_id")),
		Page:     page,
		PageSize: pageSize,
	}
	if v := c.QueryParam("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = t.Add(24 * time.Hour)
		}
	}

	rows, total, err := GetAppContext(c).SaleRecorder().ListSales(filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}
	sale, err := GetAppContext(c).SaleRecorder().GetSale(id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Sale not found", nil)
	}
	return ok(c, sale)
}
