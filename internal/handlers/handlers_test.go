package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/umalmyha/customer-records/internal/cache"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/umalmyha/customer-records/internal/service"
	"github.com/umalmyha/customer-records/internal/validation"
	"github.com/umalmyha/customer-records/pkg/db/transactor"
)

const missingID = "7b45dbaa-ddf8-4ded-b858-78be123b3e6f"

// memoryCustomerRepository keeps customers in insertion order, ids are uuids
type memoryCustomerRepository struct {
	mu        sync.Mutex
	customers []*model.Customer
	fault     error
}

func (r *memoryCustomerRepository) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fault != nil {
		return nil, apperrors.NewStoreErr("find by email", r.fault)
	}

	for _, c := range r.customers {
		if c.Email == email {
			found := *c
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryCustomerRepository) FindAll(context.Context) ([]*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fault != nil {
		return nil, apperrors.NewStoreErr("find all", r.fault)
	}

	customers := make([]*model.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		found := *c
		customers = append(customers, &found)
	}
	return customers, nil
}

func (r *memoryCustomerRepository) Create(_ context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fault != nil {
		return apperrors.NewStoreErr("create", r.fault)
	}

	c.ID = uuid.NewString()
	stored := *c
	r.customers = append(r.customers, &stored)
	return nil
}

func (r *memoryCustomerRepository) UpdateByID(_ context.Context, id string, patch *model.CustomerPatch) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.indexOf(id)
	if err != nil || idx < 0 {
		return nil, err
	}

	updated := patch.Apply(*r.customers[idx])
	r.customers[idx] = &updated

	res := updated
	return &res, nil
}

func (r *memoryCustomerRepository) DeleteByID(_ context.Context, id string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.indexOf(id)
	if err != nil || idx < 0 {
		return nil, err
	}

	deleted := r.customers[idx]
	r.customers = append(r.customers[:idx], r.customers[idx+1:]...)
	return deleted, nil
}

func (r *memoryCustomerRepository) indexOf(id string) (int, error) {
	if r.fault != nil {
		return -1, apperrors.NewStoreErr("find by id", r.fault)
	}

	if _, err := uuid.Parse(id); err != nil {
		return -1, apperrors.NewStoreErr("find by id", err)
	}

	for i, c := range r.customers {
		if c.ID == id {
			return i, nil
		}
	}
	return -1, nil
}

type handlersTestSuite struct {
	suite.Suite
	app             *echo.Echo
	repo            *memoryCustomerRepository
	customerHandler *CustomerHTTPHandler
}

func (s *handlersTestSuite) SetupSuite() {
	v, err := validation.English()
	s.Require().NoError(err, "failed to build echo validator")

	s.app = echo.New()
	s.app.Validator = v
}

func (s *handlersTestSuite) SetupTest() {
	s.repo = &memoryCustomerRepository{}
	customerSvc := service.NewCustomerService(transactor.NewNopTransactor(), s.repo, cache.NewNopCustomerCache(), logrus.New())
	s.customerHandler = NewCustomerHTTPHandler(customerSvc)
}

func (s *handlersTestSuite) create(name, email string, age float64) *model.Customer {
	c := &model.Customer{Name: name, Email: email, Age: age}
	s.Require().NoError(s.repo.Create(context.Background(), c), "failed to seed customer")
	return c
}

func (s *handlersTestSuite) requireHTTPError(err error, code int, message string) {
	require := s.Require()

	var httpErr *echo.HTTPError
	require.True(errors.As(err, &httpErr), "error must be echo error")
	require.Equal(code, httpErr.Code, "incorrect status code")
	require.Equal(message, httpErr.Message, "incorrect message")
}

//nolint:funlen // function contains a lot of inlined tests
func (s *handlersTestSuite) TestCreate() {
	t := s.T()
	require := s.Require()

	t.Log("create customer with wrong payload")
	{
		c, _ := s.echoPostContext("/cus/create", `{"name":"John Doe","email":`)
		err := s.customerHandler.Create(c)
		require.Error(err, "wrong payload has been provided but no error raised")

		var httpErr *echo.HTTPError
		require.True(errors.As(err, &httpErr), "error must be echo error")
		require.Equal(http.StatusBadRequest, httpErr.Code)
	}

	t.Log("create customer with missing fields")
	{
		for _, payload := range []string{
			`{"email":"john@example.com","age":25}`,
			`{"name":"John Doe","age":25}`,
			`{"name":"John Doe","email":"john@example.com"}`,
			`{"name":"","email":"john@example.com","age":25}`,
			`{"name":"John Doe","email":"john@example.com","age":0}`,
		} {
			c, _ := s.echoPostContext("/cus/create", payload)
			err := s.customerHandler.Create(c)
			s.requireHTTPError(err, http.StatusUnauthorized, msgMissingFields)
		}

		customers, _ := s.repo.FindAll(context.Background())
		require.Empty(customers, "nothing must be persisted")
	}

	t.Log("create customer successfully")
	{
		c, rec := s.echoPostContext("/cus/create", `{"name":"John Doe","email":"john@example.com","age":25}`)
		err := s.customerHandler.Create(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code, "response code must be Created")
		require.JSONEq(`{
			"success": true,
			"message": "Customer Has Been Added",
			"customer": {"name": "John Doe", "email": "john@example.com", "age": 25}
		}`, rec.Body.String())
	}

	t.Log("create customer with duplicate email")
	{
		c, _ := s.echoPostContext("/cus/create", `{"name":"Johnny","email":"john@example.com","age":40}`)
		err := s.customerHandler.Create(c)
		s.requireHTTPError(err, http.StatusUnauthorized, msgAlreadyExists)
	}

	t.Log("create customer from form")
	{
		form := url.Values{"name": {"Jane Smith"}, "email": {"jane@example.com"}, "age": {"30"}}
		req := httptest.NewRequest(http.MethodPost, "/cus/create", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()

		err := s.customerHandler.Create(s.app.NewContext(req, rec))
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code, "response code must be Created")
	}

	t.Log("create customer with age as numeric string")
	{
		c, rec := s.echoPostContext("/cus/create", `{"name":"Ann Lee","email":"ann@example.com","age":"41"}`)
		err := s.customerHandler.Create(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code, "response code must be Created")
		require.JSONEq(`{
			"success": true,
			"message": "Customer Has Been Added",
			"customer": {"name": "Ann Lee", "email": "ann@example.com", "age": 41}
		}`, rec.Body.String())
	}

	t.Log("create customer with non numeric age")
	{
		c, _ := s.echoPostContext("/cus/create", `{"name":"Ann Lee","email":"ann.lee@example.com","age":"old"}`)
		err := s.customerHandler.Create(c)

		var httpErr *echo.HTTPError
		require.True(errors.As(err, &httpErr), "error must be echo error")
		require.Equal(http.StatusBadRequest, httpErr.Code)
	}

	t.Log("create customer on store fault")
	{
		s.repo.fault = errors.New("connection refused")
		defer func() { s.repo.fault = nil }()

		c, _ := s.echoPostContext("/cus/create", `{"name":"Bob","email":"bob@example.com","age":50}`)
		err := s.customerHandler.Create(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgCreateFailed)
	}
}

func (s *handlersTestSuite) TestGetAll() {
	t := s.T()
	require := s.Require()

	t.Log("list empty store")
	{
		c, rec := s.echoGetContext("/cus")
		err := s.customerHandler.GetAll(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)
		require.JSONEq(`{"success":true,"message":"Customer are this","count":0,"customers":[]}`, rec.Body.String())
	}

	t.Log("list populated store")
	{
		john := s.create("John Doe", "john@example.com", 25)
		jane := s.create("Jane Smith", "jane@example.com", 30)

		c, rec := s.echoGetContext("/cus")
		err := s.customerHandler.GetAll(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)

		var res listResponse
		require.NoError(json.NewDecoder(rec.Body).Decode(&res), "failed to parse list response")
		require.True(res.Success)
		require.Equal(msgCustomerList, res.Message)
		require.Equal(2, res.Count)
		require.Equal([]*model.Customer{john, jane}, res.Customers)
	}

	t.Log("list on store fault")
	{
		s.repo.fault = errors.New("connection refused")
		defer func() { s.repo.fault = nil }()

		c, _ := s.echoGetContext("/cus")
		err := s.customerHandler.GetAll(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgListFailed)
	}
}

func (s *handlersTestSuite) TestPatch() {
	t := s.T()
	require := s.Require()
	john := s.create("John Doe", "john@example.com", 25)

	t.Log("patch customer successfully")
	{
		c, rec := s.echoPatchContext(john.ID, `{"name":"John Smith","email":"john.smith@example.com","age":26}`)
		err := s.customerHandler.Patch(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)
		require.JSONEq(`{
			"success": true,
			"message": "customer updated",
			"details": {"name": "John Smith", "email": "john.smith@example.com", "age": 26}
		}`, rec.Body.String())

		stored, err := s.repo.FindByEmail(context.Background(), "john.smith@example.com")
		require.NoError(err)
		require.Equal(&model.Customer{ID: john.ID, Name: "John Smith", Email: "john.smith@example.com", Age: 26}, stored)
	}

	t.Log("patch only supplied fields")
	{
		c, rec := s.echoPatchContext(john.ID, `{"age":27}`)
		err := s.customerHandler.Patch(c)
		require.NoError(err, "no error must be raised")
		require.JSONEq(`{
			"success": true,
			"message": "customer updated",
			"details": {"name": "John Smith", "email": "john.smith@example.com", "age": 27}
		}`, rec.Body.String())
	}

	t.Log("patch with empty body returns current customer")
	{
		c, rec := s.echoPatchContext(john.ID, `{}`)
		err := s.customerHandler.Patch(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)
	}

	t.Log("patch with blank field")
	{
		c, _ := s.echoPatchContext(john.ID, `{"name":""}`)
		err := s.customerHandler.Patch(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgUpdateFailed)
	}

	t.Log("patch with explicit null")
	{
		for _, payload := range []string{`{"age":null}`, `{"name":null}`, `{"email":null,"age":28}`} {
			c, _ := s.echoPatchContext(john.ID, payload)
			err := s.customerHandler.Patch(c)
			s.requireHTTPError(err, http.StatusNotImplemented, msgUpdateFailed)
		}

		stored, err := s.repo.FindByEmail(context.Background(), "john.smith@example.com")
		require.NoError(err)
		require.Equal(27.0, stored.Age, "rejected patch must not be written")
	}

	t.Log("patch customer from form")
	{
		form := url.Values{"name": {"Johnny Smith"}, "age": {"28"}}
		req := httptest.NewRequest(http.MethodPatch, "/cus/"+john.ID, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		c := s.app.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(john.ID)

		err := s.customerHandler.Patch(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)
		require.JSONEq(`{
			"success": true,
			"message": "customer updated",
			"details": {"name": "Johnny Smith", "email": "john.smith@example.com", "age": 28}
		}`, rec.Body.String())
	}

	t.Log("patch age as numeric string")
	{
		c, rec := s.echoPatchContext(john.ID, `{"age":"29"}`)
		err := s.customerHandler.Patch(c)
		require.NoError(err, "no error must be raised")
		require.JSONEq(`{
			"success": true,
			"message": "customer updated",
			"details": {"name": "Johnny Smith", "email": "john.smith@example.com", "age": 29}
		}`, rec.Body.String())
	}

	t.Log("patch missing customer")
	{
		c, _ := s.echoPatchContext(missingID, `{"name":"Nobody"}`)
		err := s.customerHandler.Patch(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgUpdateFailed)
	}

	t.Log("patch with malformed id")
	{
		c, _ := s.echoPatchContext("invalid-id-format", `{"name":"Nobody"}`)
		err := s.customerHandler.Patch(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgUpdateFailed)
	}

	t.Log("patch with wrong payload")
	{
		c, _ := s.echoPatchContext(john.ID, `{"name":`)
		err := s.customerHandler.Patch(c)

		var httpErr *echo.HTTPError
		require.True(errors.As(err, &httpErr), "error must be echo error")
		require.Equal(http.StatusBadRequest, httpErr.Code)
	}
}

func (s *handlersTestSuite) TestDeleteByID() {
	t := s.T()
	require := s.Require()
	john := s.create("John Doe", "john@example.com", 25)

	t.Log("delete customer successfully")
	{
		c, rec := s.echoDeleteContext(john.ID)
		err := s.customerHandler.DeleteByID(c)
		require.NoError(err, "no error must be raised")
		require.Equal(http.StatusCreated, rec.Code)
		require.JSONEq(`{"success":true,"message":"Customer Deleted","deleted":{"name":"John Doe"}}`, rec.Body.String())

		stored, err := s.repo.FindByEmail(context.Background(), john.Email)
		require.NoError(err)
		require.Nil(stored, "customer must be removed")
	}

	t.Log("delete already deleted customer")
	{
		c, _ := s.echoDeleteContext(john.ID)
		err := s.customerHandler.DeleteByID(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgDeleteFailed)
	}

	t.Log("delete with malformed id")
	{
		c, _ := s.echoDeleteContext("invalid-id-format")
		err := s.customerHandler.DeleteByID(c)
		s.requireHTTPError(err, http.StatusNotImplemented, msgDeleteFailed)
	}
}

func (s *handlersTestSuite) TestJohnDoeScenario() {
	require := s.Require()

	c, rec := s.echoPostContext("/cus/create", `{"name":"John Doe","email":"john@example.com","age":25}`)
	require.NoError(s.customerHandler.Create(c))
	require.Equal(http.StatusCreated, rec.Code)

	c, _ = s.echoPostContext("/cus/create", `{"name":"Jane Doe","email":"john@example.com","age":31}`)
	s.requireHTTPError(s.customerHandler.Create(c), http.StatusUnauthorized, msgAlreadyExists)

	c, rec = s.echoGetContext("/cus")
	require.NoError(s.customerHandler.GetAll(c))

	var res listResponse
	require.NoError(json.NewDecoder(rec.Body).Decode(&res))
	require.Equal(1, res.Count, "only first customer must be stored")
	require.Equal("John Doe", res.Customers[0].Name)
	require.Equal(25.0, res.Customers[0].Age)
}

func (s *handlersTestSuite) echoPostContext(target, payload string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return s.app.NewContext(req, rec), rec
}

func (s *handlersTestSuite) echoGetContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, strings.NewReader(""))
	rec := httptest.NewRecorder()
	return s.app.NewContext(req, rec), rec
}

func (s *handlersTestSuite) echoDeleteContext(id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodDelete, "/cus/"+id, strings.NewReader(""))
	rec := httptest.NewRecorder()
	c := s.app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func (s *handlersTestSuite) echoPatchContext(id, payload string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPatch, "/cus/"+id, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

// start handlers test suite
func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(handlersTestSuite))
}
