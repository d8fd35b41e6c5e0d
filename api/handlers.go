package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

// ──────────────────────────────────────────────────
// Customers
// ──────────────────────────────────────────────────

type customerRequest struct {
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	BookID       string            `json:"book_id"`
	Gender       customer.Gender   `json:"gender"`
	Category     customer.Category `json:"category"`
	Subsidy      bool              `json:"subsidy"`
	Address      string            `json:"address"`
	Cylinders    int               `json:"cylinders"`
	CylinderType string            `json:"cylinder_type"`
}

func (req customerRequest) customer() *customer.Customer {
	return &customer.Customer{
		Name:         req.Name,
		Phone:        req.Phone,
		BookID:       req.BookID,
		Gender:       req.Gender,
		Category:     req.Category,
		Subsidy:      req.Subsidy,
		Address:      req.Address,
		Cylinders:    req.Cylinders,
		CylinderType: req.CylinderType,
	}
}

func (s *Server) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c := req.customer()
	if err := s.depot.RegisterCustomer(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := customer.ListOpts{
		Category: customer.Category(q.Get("category")),
		Search:   q.Get("q"),
	}
	if v := q.Get("subsidy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, badParam("subsidy", err))
			return
		}
		opts.Subsidy = &b
	}
	var err error
	if opts.Limit, opts.Offset, err = paging(q); err != nil {
		writeError(w, err)
		return
	}

	list, err := s.depot.ListCustomers(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": list})
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID", id.ParseCustomerID, depot.ErrCustomerNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.depot.GetCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID", id.ParseCustomerID, depot.ErrCustomerNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	var req customerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c := req.customer()
	c.ID = customerID
	if err := s.depot.UpdateCustomer(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID", id.ParseCustomerID, depot.ErrCustomerNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.depot.DeleteCustomer(r.Context(), customerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRepairHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID", id.ParseCustomerID, depot.ErrCustomerNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.depot.RepairLegacyAmounts(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"repaired": n})
}

// ──────────────────────────────────────────────────
// Bookings
// ──────────────────────────────────────────────────

type createBookingRequest struct {
	CustomerID   id.CustomerID `json:"customer_id"`
	Cylinders    int           `json:"cylinders"`
	CylinderType string        `json:"cylinder_type"`
	DSCCode      string        `json:"dsc_code"`
	ServiceType  string        `json:"service_type"`
	// DeliveryDate is "2006-01-02" or RFC 3339.
	DeliveryDate  string                `json:"delivery_date"`
	PaymentStatus booking.PaymentStatus `json:"payment_status"`
	// PaymentAmount is in major units, e.g. "500" or "500.50".
	PaymentAmount         string `json:"payment_amount"`
	EmptyCylinderReceived bool   `json:"empty_cylinder_received"`
}

type updateBookingRequest struct {
	PaymentStatus  *booking.PaymentStatus  `json:"payment_status"`
	PaymentAmount  string                  `json:"payment_amount"`
	DeliveryStatus *booking.DeliveryStatus `json:"delivery_status"`
	// OnShortage is "abort" (default) or "proceed".
	OnShortage string `json:"on_shortage"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	service, ok := booking.ParseServiceType(req.ServiceType)
	if !ok {
		writeError(w, &depot.ValidationError{Field: "service_type", Message: "unknown service " + strconv.Quote(req.ServiceType)})
		return
	}
	delivery, err := s.parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		writeError(w, err)
		return
	}
	in := depot.CreateBookingInput{
		CustomerID:            req.CustomerID,
		Cylinders:             req.Cylinders,
		CylinderType:          req.CylinderType,
		DSCCode:               req.DSCCode,
		ServiceType:           service,
		DeliveryDate:          delivery,
		PaymentStatus:         req.PaymentStatus,
		EmptyCylinderReceived: req.EmptyCylinderReceived,
	}
	if in.PaymentAmount, err = s.parseAmount(req.PaymentAmount); err != nil {
		writeError(w, err)
		return
	}

	b, err := s.depot.CreateBooking(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := booking.ListOpts{
		DeliveryStatus: booking.DeliveryStatus(q.Get("status")),
		PaymentStatus:  booking.PaymentStatus(q.Get("payment_status")),
	}
	var err error
	if v := q.Get("customer_id"); v != "" {
		if opts.CustomerID, err = id.ParseCustomerID(v); err != nil {
			writeError(w, badParam("customer_id", err))
			return
		}
	}
	if v := q.Get("from"); v != "" {
		if opts.From, err = s.parseDate("from", v); err != nil {
			writeError(w, err)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if opts.To, err = s.parseDate("to", v); err != nil {
			writeError(w, err)
			return
		}
	}
	if opts.Limit, opts.Offset, err = paging(q); err != nil {
		writeError(w, err)
		return
	}

	views, err := s.depot.ListBookingViews(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID", id.ParseBookingID, depot.ErrBookingNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := s.depot.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID", id.ParseBookingID, depot.ErrBookingNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateBookingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := depot.UpdateBookingInput{
		PaymentStatus:  req.PaymentStatus,
		DeliveryStatus: req.DeliveryStatus,
	}
	switch strings.ToLower(req.OnShortage) {
	case "", "abort":
		in.OnShortage = depot.ShortageAbort
	case "proceed":
		in.OnShortage = depot.ShortageProceed
	default:
		writeError(w, &depot.ValidationError{Field: "on_shortage", Message: "must be abort or proceed"})
		return
	}
	if in.PaymentAmount, err = s.parseAmount(req.PaymentAmount); err != nil {
		writeError(w, err)
		return
	}

	b, err := s.depot.UpdateBooking(r.Context(), bookingID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID", id.ParseBookingID, depot.ErrBookingNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.depot.DeleteBooking(r.Context(), bookingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Inventory
// ──────────────────────────────────────────────────

type cylinderRequest struct {
	Type   string                   `json:"type"`
	Status inventory.CylinderStatus `json:"status"`
	// From and To are read by transition only.
	From inventory.CylinderStatus `json:"from"`
	To   inventory.CylinderStatus `json:"to"`
	Qty  int                      `json:"qty"`
}

func (s *Server) handleInventoryCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.depot.InventoryCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleAddCylinders(w http.ResponseWriter, r *http.Request) {
	s.cylinderOp(w, r, func(req cylinderRequest) error {
		return s.depot.AddInventoryUnits(r.Context(), req.Type, req.Status, req.Qty)
	})
}

func (s *Server) handleRemoveCylinders(w http.ResponseWriter, r *http.Request) {
	s.cylinderOp(w, r, func(req cylinderRequest) error {
		return s.depot.RemoveInventoryUnits(r.Context(), req.Type, req.Status, req.Qty)
	})
}

func (s *Server) handleTransitionCylinders(w http.ResponseWriter, r *http.Request) {
	s.cylinderOp(w, r, func(req cylinderRequest) error {
		return s.depot.TransitionInventoryUnits(r.Context(), req.Type, req.From, req.To, req.Qty)
	})
}

// cylinderOp decodes a cylinderRequest, runs op and answers with the new counts.
func (s *Server) cylinderOp(w http.ResponseWriter, r *http.Request, op func(cylinderRequest) error) {
	var req cylinderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := op(req); err != nil {
		writeError(w, err)
		return
	}
	s.handleInventoryCounts(w, r)
}

// ──────────────────────────────────────────────────
// Stoves
// ──────────────────────────────────────────────────

type addStovesRequest struct {
	Model string `json:"model"`
	Qty   int    `json:"qty"`
}

type lendStoveRequest struct {
	Model         string                   `json:"model"`
	CustomerID    id.CustomerID            `json:"customer_id"`
	PaymentStatus inventory.LendingPayment `json:"payment_status"`
}

func (s *Server) handleAddStoves(w http.ResponseWriter, r *http.Request) {
	var req addStovesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	stoves, err := s.depot.AddStoves(r.Context(), req.Model, req.Qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stoves": stoves})
}

func (s *Server) handleListStoves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stoves, err := s.depot.ListStoves(r.Context(), inventory.StoveListOpts{
		Model:  q.Get("model"),
		Status: inventory.StoveStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stoves": stoves})
}

func (s *Server) handleLendStove(w http.ResponseWriter, r *http.Request) {
	var req lendStoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.depot.LendStove(r.Context(), req.Model, req.CustomerID, req.PaymentStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleReturnStove(w http.ResponseWriter, r *http.Request) {
	stoveID, err := pathID(r, "stoveID", id.ParseStoveID, depot.ErrStoveNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := s.depot.ReturnStove(r.Context(), stoveID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lending_record_id": recordID.String()})
}

func (s *Server) handleRemoveStove(w http.ResponseWriter, r *http.Request) {
	stoveID, err := pathID(r, "stoveID", id.ParseStoveID, depot.ErrStoveNotFound)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.depot.RemoveStove(r.Context(), stoveID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLendingRecords(w http.ResponseWriter, r *http.Request) {
	var opts inventory.LendingListOpts
	if v := r.URL.Query().Get("customer_id"); v != "" {
		customerID, err := id.ParseCustomerID(v)
		if err != nil {
			writeError(w, badParam("customer_id", err))
			return
		}
		opts.CustomerID = customerID
	}
	records, err := s.depot.ListLendingRecords(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lending_records": records})
}

// ──────────────────────────────────────────────────
// Retention
// ──────────────────────────────────────────────────

func (s *Server) handleRetentionSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.depot.RunRetentionSweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ──────────────────────────────────────────────────
// Request helpers
// ──────────────────────────────────────────────────

// pathID parses a URL parameter. A malformed ID cannot name a record, so it
// answers with the entity's not-found error.
func pathID(r *http.Request, param string, parse func(string) (id.ID, error), notFound error) (id.ID, error) {
	v, err := parse(chi.URLParam(r, param))
	if err != nil {
		return id.Nil, notFound
	}
	return v, nil
}

func (s *Server) parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(history.DateLayout, v, s.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &depot.ValidationError{
			Field:   field,
			Message: "expected YYYY-MM-DD or RFC 3339, got " + strconv.Quote(v),
			Err:     depot.ErrInvalidDate,
		}
	}
	return t, nil
}

func (s *Server) parseAmount(v string) (*types.Money, error) {
	if v == "" {
		return nil, nil
	}
	m, err := types.ParseMajor(v, s.depot.PriceBook().Currency)
	if err != nil {
		return nil, badParam("payment_amount", err)
	}
	return &m, nil
}

func paging(q url.Values) (limit, offset int, err error) {
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, &depot.ValidationError{Field: "limit", Message: "must be a non-negative integer"}
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, &depot.ValidationError{Field: "offset", Message: "must be a non-negative integer"}
		}
	}
	return limit, offset, nil
}

func badParam(field string, err error) error {
	return &depot.ValidationError{Field: field, Message: err.Error(), Err: depot.ErrInvalidInput}
}
