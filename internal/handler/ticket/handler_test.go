package ticket

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

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, req model.CreateTicketRequest) (*model.Ticket, error) {
	args := m.Called(req)
	t, _ := args.Get(0).(*model.Ticket)
	return t, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id int64, req model.UpdateTicketRequest) (*model.Ticket, error) {
	args := m.Called(id, req)
	t, _ := args.Get(0).(*model.Ticket)
	return t, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockService) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	args := m.Called(id)
	t, _ := args.Get(0).(*model.Ticket)
	return t, args.Error(1)
}

func (m *mockService) List(ctx context.Context, params listquery.Params, ticketID int64) (listquery.Page[model.Ticket], error) {
	args := m.Called(params, ticketID)
	return args.Get(0).(listquery.Page[model.Ticket]), args.Error(1)
}

func (m *mockService) RecordPayment(ctx context.Context, ticketID int64, req model.PaymentRequest) (*model.Payment, error) {
	args := m.Called(ticketID, req)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func setup() (*gin.Engine, *mockService) {
	gin.SetMode(gin.TestMode)
	svc := &mockService{}
	r := gin.New()
	NewHandler(svc, time.UTC).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTicket(t *testing.T) {
	r, svc := setup()
	svc.On("Create", model.CreateTicketRequest{
		PatientID:      1,
		ReceiptType:    model.ReceiptBoleta,
		PaymentMethod:  model.PaymentYape,
		AppointmentIDs: []int64{4, 5},
		InitialPayment: 20,
	}).Return(&model.Ticket{Base: model.Base{ID: 30}}, nil)

	w := do(r, http.MethodPost, "/api/v1/tickets",
		`{"patient_id":1,"receipt_type":"BOLETA","payment_method":"YAPE","appointment_ids":[4,5],"initial_payment":20}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"error":null,"id":30}`, w.Body.String())
}

func TestCreateTicketNeedsAppointments(t *testing.T) {
	r, svc := setup()
	w := do(r, http.MethodPost, "/api/v1/tickets",
		`{"patient_id":1,"receipt_type":"BOLETA","payment_method":"YAPE","appointment_ids":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestRecordPaymentOverpayment(t *testing.T) {
	r, svc := setup()
	svc.On("RecordPayment", int64(30), mock.Anything).
		Return(nil, apperrors.BadRequest("payment exceeds the amount owed", nil))

	w := do(r, http.MethodPost, "/api/v1/tickets/30/payments", `{"amount":500,"method":"EFECTIVO"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Error al registrar el pago"}`, w.Body.String())
}

func TestRecordPayment(t *testing.T) {
	r, svc := setup()
	svc.On("RecordPayment", int64(30), model.PaymentRequest{Amount: 50, Method: model.PaymentCash}).
		Return(&model.Payment{Base: model.Base{ID: 8}, Status: model.PaymentPartial}, nil)

	w := do(r, http.MethodPost, "/api/v1/tickets/30/payments", `{"amount":50,"method":"EFECTIVO"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":8`)
}

func TestListTicketsByID(t *testing.T) {
	r, svc := setup()
	svc.On("List", mock.Anything, int64(30)).Return(listquery.Page[model.Ticket]{Page: 1, PageSize: 10}, nil)

	w := do(r, http.MethodGet, "/api/v1/tickets?id_ticket=30", "")
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
