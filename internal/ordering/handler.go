package ordering

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/curbsidehq/curbside/internal/auth"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	engine   *Engine
	streams  *StreamHandler
	validate *validator.Validate
}

type HandlerDeps struct {
	Engine  *Engine
	Streams *StreamHandler
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
		engine:   hd.Engine,
		streams:  hd.Streams,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.TransitionStatus)
		r.Patch("/{id}/cancel", h.CancelOrder)
		r.Patch("/{id}/note", h.UpdateNote)
	})

	r.Get("/merchants/{id}/orders", h.ListMerchantOrders)
	r.Get("/consumers/me/orders", h.ListMyOrders)

	if h.streams != nil {
		h.streams.RegisterRoutes(r)
	}
}

type createOrderRequest struct {
	MerchantID     uuid.UUID              `json:"merchant_id" validate:"required"`
	Items          []createOrderItemInput `json:"items" validate:"required,min=1,dive"`
	TableNumber    string                 `json:"table_number"`
	PickupMethodID string                 `json:"pickup_method_id" validate:"required"`
	Note           string                 `json:"note"`
}

type createOrderItemInput struct {
	Name     string   `json:"name" validate:"required"`
	Quantity int      `json:"quantity" validate:"required,gt=0"`
	Price    float64  `json:"price" validate:"gte=0"`
	Note     string   `json:"note"`
	Stations []string `json:"stations"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleConsumer)
	if !ok {
		return
	}

	var req createOrderRequest
	if !h.decodePayload(w, r, &req, log) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Debug("create order payload rejected", "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = LineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Note:     item.Note,
			Stations: item.Stations,
		}
	}

	order, err := h.engine.CreateOrder(ctx, CreateOrderInput{
		MerchantID:     req.MerchantID,
		ConsumerID:     ident.ID,
		Items:          items,
		TableNumber:    req.TableNumber,
		PickupMethodID: req.PickupMethodID,
		Note:           req.Note,
	})
	if err != nil {
		h.respondEngineError(w, log, err, "create order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.anyIdentity(w, r)
	if !ok {
		return
	}

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.engine.GetOrder(ctx, id)
	if err != nil {
		h.respondEngineError(w, log, err, "load order")
		return
	}

	if !orderVisibleTo(order, ident) {
		apt.RespondError(w, http.StatusForbidden, "Order belongs to another account")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.TransitionStatus")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleMerchant)
	if !ok {
		return
	}

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req transitionRequest
	if !h.decodePayload(w, r, &req, log) {
		return
	}

	requested, known := ParseStatus(req.Status)
	if !known {
		apt.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", req.Status))
		return
	}

	order, err := h.engine.TransitionStatus(ctx, id, requested, ident.ID)
	if err != nil {
		h.respondEngineError(w, log, err, "update order status")
		return
	}

	apt.RespondSuccess(w, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleConsumer)
	if !ok {
		return
	}

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.engine.CancelOrder(ctx, id, ident.ID)
	if err != nil {
		h.respondEngineError(w, log, err, "cancel order")
		return
	}

	apt.RespondSuccess(w, order)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateNote")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleConsumer)
	if !ok {
		return
	}

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req noteRequest
	if !h.decodePayload(w, r, &req, log) {
		return
	}

	order, err := h.engine.UpdateNote(ctx, id, ident.ID, req.Note)
	if err != nil {
		h.respondEngineError(w, log, err, "update order note")
		return
	}

	apt.RespondSuccess(w, order)
}

func (h *Handler) ListMerchantOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMerchantOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleMerchant)
	if !ok {
		return
	}

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}
	if ident.Role == auth.RoleMerchant && ident.ID != id {
		apt.RespondError(w, http.StatusForbidden, "Cannot list another merchant's orders")
		return
	}

	var status Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, known := ParseStatus(raw)
		if !known {
			apt.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return
		}
		status = parsed
	}

	orders, err := h.engine.ListMerchantOrders(ctx, id, status)
	if err != nil {
		h.respondEngineError(w, log, err, "list orders")
		return
	}

	apt.RespondSuccess(w, orders)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMyOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	ident, ok := h.identity(w, r, auth.RoleConsumer)
	if !ok {
		return
	}

	orders, err := h.engine.ListConsumerOrders(ctx, ident.ID)
	if err != nil {
		h.respondEngineError(w, log, err, "list orders")
		return
	}

	apt.RespondSuccess(w, orders)
}

// Helpers

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, out any, log apt.Logger) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		log.Debug("cannot read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("invalid JSON payload", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id param", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

// identity requires an authenticated actor with the given role; admins pass
// every role check.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request, role auth.Role) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		apt.RespondError(w, http.StatusUnauthorized, "Missing credential")
		return nil, false
	}
	if ident.Role != role && ident.Role != auth.RoleAdmin {
		apt.RespondError(w, http.StatusForbidden, "Insufficient role")
		return nil, false
	}
	return ident, true
}

func (h *Handler) anyIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		apt.RespondError(w, http.StatusUnauthorized, "Missing credential")
		return nil, false
	}
	return ident, true
}

func orderVisibleTo(order *Order, ident *auth.Identity) bool {
	switch ident.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleMerchant:
		return order.MerchantID == ident.ID
	case auth.RoleConsumer:
		return order.ConsumerID == ident.ID
	}
	return false
}

func (h *Handler) respondEngineError(w http.ResponseWriter, log apt.Logger, err error, action string) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("cannot "+action, "error", err)
		apt.RespondError(w, status, "Could not "+action)
		return
	}
	log.Debug("request rejected", "action", action, "error", err)
	apt.RespondError(w, status, err.Error())
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
