package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
	"github.com/vladislavdragonenkov/dop/internal/service/order"
)

// OrderHandler обслуживает HTTP-операции над заказами.
type OrderHandler struct {
	orders *order.Service
	logger *log.Entry
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(orders *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OrderHandler{
		orders: orders,
		logger: logger.WithField("component", "http_order_handler"),
	}
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Qty       int32  `json:"qty"`
}

type createOrderRequest struct {
	CompanyID       string        `json:"company_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	DeliveryAddress string        `json:"delivery_address"`
	DeliveryType    string        `json:"delivery_type"`
	PaymentMethod   string        `json:"payment_method"`
	Notes           string        `json:"notes"`
	Lines           []lineRequest `json:"lines"`
	ReorderFrom     string        `json:"reorder_from,omitempty"`
}

type updateOrderRequest struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

type lineResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	ProductName    string `json:"product_name"`
	VariantName    string `json:"variant_name,omitempty"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	TotalMinor     int64  `json:"total_minor"`
}

type orderResponse struct {
	ID               string         `json:"id"`
	CompanyID        string         `json:"company_id"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email,omitempty"`
	CustomerPhone    string         `json:"customer_phone,omitempty"`
	DeliveryAddress  string         `json:"delivery_address,omitempty"`
	DeliveryType     string         `json:"delivery_type,omitempty"`
	PaymentMethod    string         `json:"payment_method,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Status           string         `json:"status"`
	SubtotalMinor    int64          `json:"subtotal_minor"`
	DeliveryFeeMinor int64          `json:"delivery_fee_minor"`
	TotalMinor       int64          `json:"total_minor"`
	Lines            []lineResponse `json:"lines"`
	Version          int64          `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type financialEntryResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Kind        string     `json:"kind"`
	AmountMinor int64      `json:"amount_minor"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type auditEventResponse struct {
	Type     string    `json:"type"`
	Detail   string    `json:"detail,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderResponse(o domain.Order) orderResponse {
	lines := make([]lineResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, lineResponse{
			ID:             line.ID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			ProductName:    line.ProductName,
			VariantName:    line.VariantName,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			TotalMinor:     line.TotalMinor,
		})
	}

	return orderResponse{
		ID:               o.ID,
		CompanyID:        o.CompanyID,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		DeliveryAddress:  o.DeliveryAddress,
		DeliveryType:     o.DeliveryType,
		PaymentMethod:    o.PaymentMethod,
		Notes:            o.Notes,
		Status:           string(o.Status),
		SubtotalMinor:    o.SubtotalMinor,
		DeliveryFeeMinor: o.DeliveryFeeMinor,
		TotalMinor:       o.TotalMinor,
		Lines:            lines,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (req createOrderRequest) toInput() order.CreateInput {
	lines := make([]order.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, order.LineInput{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Qty:       line.Qty,
		})
	}

	return order.CreateInput{
		CompanyID:       req.CompanyID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryType:    req.DeliveryType,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Lines:           lines,
		ReorderFromID:   req.ReorderFrom,
	}
}

// Create обрабатывает оформление заказа сотрудником компании.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, errMalformedBody)
		return
	}

	if !principal.CanAccessCompany(req.CompanyID) {
		respondError(w, h.logger, domain.ErrForbidden)
		return
	}

	created, err := h.orders.Create(r.Context(), req.toInput())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondData(w, http.StatusCreated, toOrderResponse(created))
}

// CreatePublic обрабатывает оформление заказа клиентом по публичной
// ссылке компании. Аутентификация не требуется; компания берётся из тела.
func (h *OrderHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, errMalformedBody)
		return
	}

	created, err := h.orders.Create(r.Context(), req.toInput())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondData(w, http.StatusCreated, toOrderResponse(created))
}

// Get возвращает заказ по идентификатору.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	found, err := h.orders.Get(r.Context(), principal, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondData(w, http.StatusOK, toOrderResponse(found))
}

// List возвращает заказы компании, свежие первыми.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		companyID = principal.CompanyID
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, h.logger, errMalformedBody)
			return
		}
		limit = parsed
	}

	orders, err := h.orders.List(r.Context(), principal, companyID, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	respondData(w, http.StatusOK, result)
}

// Update применяет частичное обновление заказа (статус, заметки).
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, errMalformedBody)
		return
	}

	updated, err := h.orders.Transition(r.Context(), principal, chi.URLParam(r, "orderID"), order.TransitionInput{
		Status: req.Status,
		Notes:  req.Notes,
		Actor:  principal.UserID,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondData(w, http.StatusOK, toOrderResponse(updated))
}

// Finance возвращает финансовые записи заказа.
func (h *OrderHandler) Finance(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	entries, err := h.orders.Finance(r.Context(), principal, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	result := make([]financialEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, financialEntryResponse{
			ID:          entry.ID,
			OrderID:     entry.OrderID,
			Kind:        string(entry.Kind),
			AmountMinor: entry.AmountMinor,
			Status:      string(entry.Status),
			PaidAt:      entry.PaidAt,
			CreatedAt:   entry.CreatedAt,
		})
	}
	respondData(w, http.StatusOK, result)
}

// Audit возвращает журнал аудита заказа.
func (h *OrderHandler) Audit(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, h.logger, errUnauthorized)
		return
	}

	events, err := h.orders.AuditTrail(r.Context(), principal, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	result := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, auditEventResponse{
			Type:     event.Type,
			Detail:   event.Detail,
			Actor:    event.Actor,
			Occurred: event.Occurred,
		})
	}
	respondData(w, http.StatusOK, result)
}
