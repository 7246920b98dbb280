package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/middleware"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, req model.ServiceRequest) (*model.Service, error) {
	args := m.Called(req)
	s, _ := args.Get(0).(*model.Service)
	return s, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id int64, req model.ServiceRequest) (*model.Service, error) {
	args := m.Called(id, req)
	s, _ := args.Get(0).(*model.Service)
	return s, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockService) Get(ctx context.Context, id int64) (*model.Service, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*model.Service)
	return s, args.Error(1)
}

func (m *mockService) List(ctx context.Context, params listquery.Params) (listquery.Page[model.Service], error) {
	args := m.Called(params)
	return args.Get(0).(listquery.Page[model.Service]), args.Error(1)
}

func setup(t *testing.T, write ...gin.HandlerFunc) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidation())

	svc := &mockService{}
	r := gin.New()
	NewHandler(svc, time.UTC).RegisterRoutes(r.Group("/api/v1"), write...)
	return r, svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateService(t *testing.T) {
	r, svc := setup(t)
	svc.On("Create", model.ServiceRequest{Name: "Limpieza", Fee: 80}).
		Return(&model.Service{Base: model.Base{ID: 2}}, nil)

	w := do(r, http.MethodPost, "/api/v1/services", `{"name":"Limpieza","fee":80}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"error":null,"id":2}`, w.Body.String())
}

func TestCreateServiceRejectsNegativeFee(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodPost, "/api/v1/services", `{"name":"Limpieza","fee":-1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"fee"`)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateServiceDuplicate(t *testing.T) {
	r, svc := setup(t)
	svc.On("Create", mock.Anything).Return(nil, apperrors.Conflict("service already exists", nil))

	w := do(r, http.MethodPost, "/api/v1/services", `{"name":"Limpieza","fee":80}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Error al crear un servicio"}`, w.Body.String())
}

func TestServiceWritesUseGuard(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }
	r, svc := setup(t, deny)
	svc.On("List", mock.Anything).Return(listquery.Page[model.Service]{Page: 1, PageSize: 10}, nil)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/services", `{"name":"Limpieza","fee":80}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/v1/services/2", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/services", "").Code)
}

func TestUpdateService(t *testing.T) {
	r, svc := setup(t)
	svc.On("Update", int64(2), model.ServiceRequest{Name: "Limpieza profunda", Fee: 120}).
		Return(&model.Service{Base: model.Base{ID: 2}}, nil)

	w := do(r, http.MethodPut, "/api/v1/services/2", `{"name":"Limpieza profunda","fee":120}`)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestDeleteMissingService(t *testing.T) {
	r, svc := setup(t)
	svc.On("Delete", int64(2)).Return(apperrors.NotFound("service", nil))

	w := do(r, http.MethodDelete, "/api/v1/services/2", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Error al eliminar un servicio"}`, w.Body.String())
}

func TestGetServiceBadID(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodGet, "/api/v1/services/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything)
}
