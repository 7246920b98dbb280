package employee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/middleware"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, req model.EmployeeRequest) (*model.Employee, error) {
	args := m.Called(req)
	e, _ := args.Get(0).(*model.Employee)
	return e, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id int64, req model.EmployeeRequest) (*model.Employee, error) {
	args := m.Called(id, req)
	e, _ := args.Get(0).(*model.Employee)
	return e, args.Error(1)
}

func (m *mockService) UpdateSpecialty(ctx context.Context, id int64, specialty string) error {
	return m.Called(id, specialty).Error(0)
}

func (m *mockService) Delete(ctx context.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockService) Get(ctx context.Context, id int64) (*model.Employee, error) {
	args := m.Called(id)
	e, _ := args.Get(0).(*model.Employee)
	return e, args.Error(1)
}

func (m *mockService) List(ctx context.Context, params listquery.Params) (listquery.Page[model.Employee], error) {
	args := m.Called(params)
	return args.Get(0).(listquery.Page[model.Employee]), args.Error(1)
}

func (m *mockService) Doctors(ctx context.Context) ([]model.Employee, error) {
	args := m.Called()
	e, _ := args.Get(0).([]model.Employee)
	return e, args.Error(1)
}

func pass(c *gin.Context) { c.Next() }

func deny(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }

func setupWith(t *testing.T, admin, doctor gin.HandlerFunc) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidation())

	svc := &mockService{}
	r := gin.New()
	NewHandler(svc, time.UTC).RegisterRoutes(r.Group("/api/v1"), admin, doctor)
	return r, svc
}

func setup(t *testing.T) (*gin.Engine, *mockService) {
	return setupWith(t, pass, pass)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validEmployee = `{
	"first_name": "Jorge",
	"last_name": "Salas",
	"dni": "87654321",
	"phone": "987654321",
	"email": "jorge@clinica.pe",
	"sex": "MASCULINO",
	"specialty": "Ortodoncia",
	"roles": ["ODONTOLOGO", "ADMIN"]
}`

func TestCreateEmployee(t *testing.T) {
	r, svc := setup(t)
	svc.On("Create", mock.MatchedBy(func(req model.EmployeeRequest) bool {
		return req.DNI == "87654321" && len(req.RoleSet()) == 2
	})).Return(&model.Employee{Base: model.Base{ID: 12}}, nil)

	w := do(r, http.MethodPost, "/api/v1/employees", validEmployee)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"error":null,"id":12}`, w.Body.String())
}

func TestCreateEmployeeRejectsUnknownRole(t *testing.T) {
	r, svc := setup(t)

	body := strings.Replace(validEmployee, `"ADMIN"`, `"PACIENTE"`, 1)
	w := do(r, http.MethodPost, "/api/v1/employees", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Datos inválidos")
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateEmployeeNeedsEmail(t *testing.T) {
	r, svc := setup(t)

	body := strings.Replace(validEmployee, `"email": "jorge@clinica.pe",`, ``, 1)
	w := do(r, http.MethodPost, "/api/v1/employees", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"email"`)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestEmployeeWritesGoThroughAdminGuard(t *testing.T) {
	r, svc := setupWith(t, deny, pass)
	svc.On("Get", int64(3)).Return(&model.Employee{Base: model.Base{ID: 3}}, nil)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/employees", validEmployee).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/api/v1/employees/3", validEmployee).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/v1/employees/3", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/employees/3", "").Code)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUpdateSpecialtyGoesThroughDoctorGuard(t *testing.T) {
	r, svc := setupWith(t, pass, deny)

	w := do(r, http.MethodPatch, "/api/v1/employees/3/specialty", `{"specialty":"Endodoncia"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "UpdateSpecialty", mock.Anything, mock.Anything)
}

func TestUpdateSpecialty(t *testing.T) {
	r, svc := setup(t)
	svc.On("UpdateSpecialty", int64(3), "Endodoncia").Return(nil)

	w := do(r, http.MethodPatch, "/api/v1/employees/3/specialty", `{"specialty":"Endodoncia"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"error":null}`, w.Body.String())
}

func TestUpdateSpecialtyMissingEmployee(t *testing.T) {
	r, svc := setup(t)
	svc.On("UpdateSpecialty", int64(3), "Endodoncia").Return(apperrors.NotFound("employee", nil))

	w := do(r, http.MethodPatch, "/api/v1/employees/3/specialty", `{"specialty":"Endodoncia"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Error al actualizar la especialidad"}`, w.Body.String())
}

func TestDeleteEmployeeBadID(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodDelete, "/api/v1/employees/0", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Error al eliminar un empleado"}`, w.Body.String())
	svc.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestListDoctors(t *testing.T) {
	r, svc := setup(t)
	svc.On("Doctors").Return([]model.Employee{
		{Base: model.Base{ID: 3}, Roles: pq.StringArray{"ODONTOLOGO"}},
	}, nil)

	w := do(r, http.MethodGet, "/api/v1/employees/doctors", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":["ODONTOLOGO"]`)
}

func TestListDoctorsEmptyIsArray(t *testing.T) {
	r, svc := setup(t)
	svc.On("Doctors").Return(nil, nil)

	w := do(r, http.MethodGet, "/api/v1/employees/doctors", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestListEmployees(t *testing.T) {
	r, svc := setup(t)
	svc.On("List", mock.MatchedBy(func(p listquery.Params) bool {
		return p.Search == "salas" && p.Page == 2
	})).Return(listquery.Page[model.Employee]{Total: 15, Page: 2, PageSize: 10}, nil)

	w := do(r, http.MethodGet, "/api/v1/employees?search=salas&page=2", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pagination":{"page":2,"page_size":10,"total":15,"total_pages":2}`)
}
