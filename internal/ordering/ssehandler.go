package ordering

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/pkg/bus"
	"github.com/curbsidehq/curbside/pkg/event"
)

const (
	// defaultHeartbeat keeps intermediary proxies from closing idle
	// streams. It is not a server-side timeout.
	defaultHeartbeat = 10 * time.Second

	// streamBuffer is the per-connection event buffer. Bus listeners must
	// not block, so a full buffer drops the event for that connection.
	streamBuffer = 64
)

// StreamHandler turns bus activity into per-client SSE push streams with
// connection-scoped filtering and lifecycle management.
type StreamHandler struct {
	bus    *bus.Bus
	orders OrderRepo
	logger apt.Logger

	// Heartbeat overrides defaultHeartbeat; tests shorten it.
	Heartbeat time.Duration
}

func NewStreamHandler(b *bus.Bus, orders OrderRepo, logger apt.Logger) *StreamHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &StreamHandler{
		bus:       b,
		orders:    orders,
		logger:    logger,
		Heartbeat: defaultHeartbeat,
	}
}

func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/streams/merchants/{id}", h.MerchantStream)
	r.Get("/streams/orders/{id}", h.OrderStream)
}

// streamConn bundles the resources owned by one open connection: the bus
// subscription and the heartbeat ticker. Close releases both together and
// is idempotent; leaving either dangling is a leak or a silent drop.
type streamConn struct {
	events    chan *event.OrderEvent
	heartbeat *time.Ticker
	sub       *bus.Subscription
	once      sync.Once
}

func (h *StreamHandler) openConn(topic string, filter func(*event.OrderEvent) bool) *streamConn {
	c := &streamConn{
		events:    make(chan *event.OrderEvent, streamBuffer),
		heartbeat: time.NewTicker(h.Heartbeat),
	}
	c.sub = h.bus.Subscribe(topic, func(evt *event.OrderEvent) {
		if filter != nil && !filter(evt) {
			return
		}
		select {
		case c.events <- evt:
		default:
			// Connection buffer full, client too slow for live updates.
		}
	})
	return c
}

func (c *streamConn) Close() {
	c.once.Do(func() {
		c.sub.Unsubscribe()
		c.heartbeat.Stop()
	})
}

// MerchantStream pushes every event about one merchant's orders. An
// optional station query parameter routes created events: orders whose
// items are all tagged for other stations are suppressed, while
// status_changed and updated events always pass because state changes must
// reach every screen watching the merchant.
func (h *StreamHandler) MerchantStream(w http.ResponseWriter, r *http.Request) {
	merchantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid merchant ID")
		return
	}

	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		apt.RespondError(w, http.StatusUnauthorized, "Missing credential")
		return
	}
	if ident.Role == auth.RoleMerchant && ident.ID != merchantID {
		apt.RespondError(w, http.StatusForbidden, "Cannot watch another merchant's orders")
		return
	}
	if ident.Role == auth.RoleConsumer {
		apt.RespondError(w, http.StatusForbidden, "Insufficient role")
		return
	}

	station := r.URL.Query().Get("station")

	var filter func(*event.OrderEvent) bool
	if station != "" {
		filter = func(evt *event.OrderEvent) bool {
			if evt.Type != event.EventOrderCreated {
				return true
			}
			return evt.Data != nil && evt.Data.HasStationItem(station)
		}
	}

	flusher, ok := h.prepareSSE(w)
	if !ok {
		return
	}

	subscriberID := uuid.New().String()
	log := h.logger.With("subscriber_id", subscriberID, "merchant_id", merchantID.String())
	log.Info("merchant stream opened", "station", station)

	conn := h.openConn(event.MerchantTopic(merchantID), filter)
	defer conn.Close()

	connected := &event.OrderEvent{
		Type:       event.EventConnected,
		OccurredAt: time.Now(),
		MerchantID: merchantID,
	}
	if err := writeFrame(w, flusher, connected); err != nil {
		log.Info("merchant stream write failed", "error", err)
		return
	}

	h.serve(w, r, flusher, conn, log)
	log.Info("merchant stream closed")
}

// OrderStream pushes events for a single order to its owning consumer. The
// first frame acknowledges the connection and carries the current order
// snapshot.
func (h *StreamHandler) OrderStream(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		apt.RespondError(w, http.StatusUnauthorized, "Missing credential")
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		h.logger.Error("cannot load order for stream", "order_id", orderID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not open stream")
		return
	}
	if order == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}
	if ident.Role != auth.RoleAdmin && order.ConsumerID != ident.ID {
		apt.RespondError(w, http.StatusForbidden, "Order belongs to another consumer")
		return
	}

	flusher, ok := h.prepareSSE(w)
	if !ok {
		return
	}

	subscriberID := uuid.New().String()
	log := h.logger.With("subscriber_id", subscriberID, "order_id", orderID.String())
	log.Info("order stream opened")

	conn := h.openConn(event.OrderTopic(orderID), nil)
	defer conn.Close()

	connected := &event.OrderEvent{
		Type:       event.EventConnected,
		OccurredAt: time.Now(),
		OrderID:    order.ID,
		MerchantID: order.MerchantID,
		ConsumerID: order.ConsumerID,
		Data:       order.Snapshot(),
	}
	if err := writeFrame(w, flusher, connected); err != nil {
		log.Info("order stream write failed", "error", err)
		return
	}

	h.serve(w, r, flusher, conn, log)
	log.Info("order stream closed")
}

// serve pumps heartbeats and events until the client disconnects or a write
// fails. A failed write on a dead connection only tears down this
// connection; teardown itself happens in the caller's deferred Close.
func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, flusher http.Flusher, conn *streamConn, log apt.Logger) {
	for {
		select {
		case <-r.Context().Done():
			log.Debug("stream client disconnected")
			return

		case <-conn.heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Info("heartbeat write failed", "error", err)
				return
			}
			flusher.Flush()

		case evt := <-conn.events:
			if err := writeFrame(w, flusher, evt); err != nil {
				log.Info("event write failed", "error", err)
				return
			}
		}
	}
}

func (h *StreamHandler) prepareSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apt.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Reconnection interval hint for EventSource clients.
	fmt.Fprintf(w, "retry: 2000\n\n")
	flusher.Flush()
	return flusher, true
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, evt *event.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("cannot marshal event frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
