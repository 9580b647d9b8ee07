package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/umalmyha/customer-records/internal/service"
	"github.com/umalmyha/customer-records/internal/validation"
)

const (
	msgMissingFields  = "Please Provide All the Fields"
	msgAlreadyExists  = "You Already Exist Edit your details"
	msgCreateFailed   = "Could Not create a user"
	msgListFailed     = "Get User Could not be fullfilled"
	msgUpdateFailed   = "Could not Update"
	msgDeleteFailed   = "Could not delete"
	msgCustomerAdded  = "Customer Has Been Added"
	msgCustomerList   = "Customer are this"
	msgCustomerUpdate = "customer updated"
	msgCustomerDelete = "Customer Deleted"
)

type newCustomer struct {
	Name  string `json:"name" form:"name" validate:"required"`
	Email string `json:"email" form:"email" validate:"required"`
	Age   number `json:"age" form:"age" validate:"required" swaggertype:"number"`
}

type patchCustomer struct {
	Name  optionalString `json:"name" form:"name" swaggertype:"string"`
	Email optionalString `json:"email" form:"email" swaggertype:"string"`
	Age   optionalNumber `json:"age" form:"age" swaggertype:"number"`
}

type customerDetails struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Age   float64 `json:"age"`
}

type deletedDetails struct {
	Name string `json:"name"`
}

type createdResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Customer customerDetails `json:"customer"`
}

type listResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Count     int               `json:"count"`
	Customers []*model.Customer `json:"customers"`
}

type updatedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Details customerDetails `json:"details"`
}

type deletedResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Deleted deletedDetails `json:"deleted"`
}

// CustomerHTTPHandler is http handler for customer endpoint
type CustomerHTTPHandler struct {
	customerSvc service.CustomerService
}

// NewCustomerHTTPHandler builds new CustomerHTTPHandler
func NewCustomerHTTPHandler(customerSvc service.CustomerService) *CustomerHTTPHandler {
	return &CustomerHTTPHandler{customerSvc: customerSvc}
}

// Create creates new customer
// @Summary     New Customer
// @Description Creates new customer, email must be unique
// @Tags        customers
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       newCustomer body     newCustomer true "Data for new customer"
// @Success     201         {object} createdResponse
// @Failure     400         {object} echo.HTTPError
// @Failure     401         {object} echo.HTTPError
// @Failure     501         {object} echo.HTTPError
// @Router      /cus/create [post]
func (h *CustomerHTTPHandler) Create(c echo.Context) error {
	var nc newCustomer
	if err := c.Bind(&nc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(&nc); err != nil {
		var pldErr *validation.PayloadError
		if errors.As(err, &pldErr) {
			return echo.NewHTTPError(http.StatusUnauthorized, msgMissingFields).SetInternal(err)
		}
		return err
	}

	customer, err := h.customerSvc.Create(c.Request().Context(), &model.Customer{
		Name:  nc.Name,
		Email: nc.Email,
		Age:   float64(nc.Age),
	})
	if err != nil {
		var conflictErr *apperrors.ConflictErr
		if errors.As(err, &conflictErr) {
			return echo.NewHTTPError(http.StatusUnauthorized, msgAlreadyExists).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusNotImplemented, msgCreateFailed).SetInternal(err)
	}

	return c.JSON(http.StatusCreated, &createdResponse{
		Success:  true,
		Message:  msgCustomerAdded,
		Customer: detailsOf(customer),
	})
}

// GetAll gets all customers
// @Summary     Get all customers
// @Description Returns all customers with their number
// @Tags        customers
// @Produce     json
// @Success     201 {object} listResponse
// @Failure     501 {object} echo.HTTPError
// @Router      /cus [get]
func (h *CustomerHTTPHandler) GetAll(c echo.Context) error {
	customers, err := h.customerSvc.FindAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusNotImplemented, msgListFailed).SetInternal(err)
	}

	if customers == nil {
		customers = make([]*model.Customer, 0)
	}

	return c.JSON(http.StatusCreated, &listResponse{
		Success:   true,
		Message:   msgCustomerList,
		Count:     len(customers),
		Customers: customers,
	})
}

// Patch updates customer partially
// @Summary     Update Customer
// @Description Updates supplied fields of customer, supplied null or blank value is rejected
// @Tags        customers
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       id            path     string        true "Customer id"
// @Param       patchCustomer body     patchCustomer true "Fields to update"
// @Success     201           {object} updatedResponse
// @Failure     400           {object} echo.HTTPError
// @Failure     501           {object} echo.HTTPError
// @Router      /cus/{id} [patch]
func (h *CustomerHTTPHandler) Patch(c echo.Context) error {
	var pc patchCustomer
	if err := c.Bind(&pc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	customer, err := h.customerSvc.UpdateByID(c.Request().Context(), c.Param("id"), &model.CustomerPatch{
		Name:  pc.Name.ptr(),
		Email: pc.Email.ptr(),
		Age:   pc.Age.ptr(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusNotImplemented, msgUpdateFailed).SetInternal(err)
	}

	return c.JSON(http.StatusCreated, &updatedResponse{
		Success: true,
		Message: msgCustomerUpdate,
		Details: detailsOf(customer),
	})
}

// DeleteByID deletes customer
// @Summary     Delete customer by id
// @Description Deletes customer with provided id and returns its name
// @Tags        customers
// @Produce     json
// @Param       id  path     string true "Customer id"
// @Success     201 {object} deletedResponse
// @Failure     501 {object} echo.HTTPError
// @Router      /cus/{id} [delete]
func (h *CustomerHTTPHandler) DeleteByID(c echo.Context) error {
	customer, err := h.customerSvc.DeleteByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotImplemented, msgDeleteFailed).SetInternal(err)
	}

	return c.JSON(http.StatusCreated, &deletedResponse{
		Success: true,
		Message: msgCustomerDelete,
		Deleted: deletedDetails{Name: customer.Name},
	})
}

func detailsOf(c *model.Customer) customerDetails {
	return customerDetails{
		Name:  c.Name,
		Email: c.Email,
		Age:   c.Age,
	}
}
