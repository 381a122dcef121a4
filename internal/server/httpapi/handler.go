// Package httpapi exposes the reference backend's REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/auth"
	"github.com/pawsync/pawsync/internal/server/metrics"
	"github.com/pawsync/pawsync/internal/server/middleware"
	petsvc "github.com/pawsync/pawsync/internal/server/services/pets"
	recsvc "github.com/pawsync/pawsync/internal/server/services/records"
	ticketsvc "github.com/pawsync/pawsync/internal/server/services/tickets"
	usersvc "github.com/pawsync/pawsync/internal/server/services/users"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

// Handler bundles the HTTP endpoints over the application services.
type Handler struct {
	users   *usersvc.Service
	pets    *petsvc.Service
	records *recsvc.Service
	tickets *ticketsvc.Service
	issuer  *auth.Issuer
	log     *logger.Logger
}

func NewHandler(users *usersvc.Service, pets *petsvc.Service, records *recsvc.Service, tickets *ticketsvc.Service, issuer *auth.Issuer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{users: users, pets: pets, records: records, tickets: tickets, issuer: issuer, log: log}
}

// Routes registers every endpoint on a new router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)

	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/me", h.updateMe).Methods(http.MethodPatch)

	api.HandleFunc("/sync/snapshot", h.snapshot).Methods(http.MethodGet)

	api.HandleFunc("/pets", h.listPets).Methods(http.MethodGet)
	api.HandleFunc("/pets", h.createPet).Methods(http.MethodPost)
	api.HandleFunc("/pets/{id}", h.getPet).Methods(http.MethodGet)
	api.HandleFunc("/pets/{id}", h.updatePet).Methods(http.MethodPatch)
	api.HandleFunc("/pets/{id}", h.deletePet).Methods(http.MethodDelete)

	api.HandleFunc("/pets/{id}/{kind}", h.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/pets/{id}/{kind}", h.createRecord).Methods(http.MethodPost)
	api.HandleFunc("/records/{kind}/{id}", h.getRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{kind}/{id}", h.updateRecord).Methods(http.MethodPatch)
	api.HandleFunc("/records/{kind}/{id}", h.deleteRecord).Methods(http.MethodDelete)

	api.HandleFunc("/tickets", h.listTickets).Methods(http.MethodGet)
	api.HandleFunc("/tickets", h.createTicket).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id}", h.getTicket).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{id}", h.updateTicket).Methods(http.MethodPatch)
	api.HandleFunc("/tickets/{id}", h.deleteTicket).Methods(http.MethodDelete)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users", h.adminListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.adminGetUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.adminDeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id}/tokens", h.adminGrantTokens).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/plan", h.adminSetPlan).Methods(http.MethodPost)
	admin.HandleFunc("/tickets", h.adminListTickets).Methods(http.MethodGet)
	admin.HandleFunc("/tickets/{id}/reply", h.adminReplyTicket).Methods(http.MethodPost)

	return r
}

// AuthSkipPaths are the endpoints reachable without a bearer token.
func AuthSkipPaths() []string {
	return []string{
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/auth/refresh",
		"/healthz",
		"/metrics",
	}
}

// --- auth -------------------------------------------------------------------

type credentialsPayload struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Register(r.Context(), payload.Email, payload.Name, payload.Password)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, usersvc.ErrEmailTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	pair, err := h.issuer.Issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	pair, err := h.issuer.Issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := h.issuer.ParseRefresh(payload.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidRefreshToken)
		return
	}
	pair, err := h.issuer.Issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// --- profile ----------------------------------------------------------------

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), payload.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- snapshot ---------------------------------------------------------------

// snapshotResponse matches the shape the client's bulk sync consumes.
type snapshotResponse struct {
	User         user.User        `json:"user"`
	Pets         []pet.Pet        `json:"pets"`
	Feedings     []record.Generic `json:"feedings"`
	Water        []record.Generic `json:"water"`
	Medications  []record.Generic `json:"medications"`
	PainScores   []record.Generic `json:"pain_scores"`
	Seizures     []record.Generic `json:"seizures"`
	Vitals       []record.Generic `json:"vitals"`
	Movements    []record.Generic `json:"movements"`
	Appointments []record.Generic `json:"appointments"`
	BloodSugar   []record.Generic `json:"blood_sugar"`
	Gallery      []record.Generic `json:"gallery"`
	Tickets      []ticket.Ticket  `json:"tickets"`
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		metrics.RecordSnapshot(err)
		writeError(w, statusFor(err), err)
		return
	}
	petsList, err := h.pets.List(r.Context(), userID)
	if err != nil {
		metrics.RecordSnapshot(err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := snapshotResponse{
		User:         u,
		Pets:         petsList,
		Feedings:     []record.Generic{},
		Water:        []record.Generic{},
		Medications:  []record.Generic{},
		PainScores:   []record.Generic{},
		Seizures:     []record.Generic{},
		Vitals:       []record.Generic{},
		Movements:    []record.Generic{},
		Appointments: []record.Generic{},
		BloodSugar:   []record.Generic{},
		Gallery:      []record.Generic{},
		Tickets:      []ticket.Ticket{},
	}
	if resp.Pets == nil {
		resp.Pets = []pet.Pet{}
	}

	for _, kind := range record.Kinds {
		list, err := h.records.List(r.Context(), userID, kind)
		if err != nil {
			metrics.RecordSnapshot(err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		switch kind {
		case record.KindFeeding:
			resp.Feedings = append(resp.Feedings, list...)
		case record.KindWater:
			resp.Water = append(resp.Water, list...)
		case record.KindMedication:
			resp.Medications = append(resp.Medications, list...)
		case record.KindPainScore:
			resp.PainScores = append(resp.PainScores, list...)
		case record.KindSeizure:
			resp.Seizures = append(resp.Seizures, list...)
		case record.KindVitals:
			resp.Vitals = append(resp.Vitals, list...)
		case record.KindMovement:
			resp.Movements = append(resp.Movements, list...)
		case record.KindAppointment:
			resp.Appointments = append(resp.Appointments, list...)
		case record.KindBloodSugar:
			resp.BloodSugar = append(resp.BloodSugar, list...)
		case record.KindGallery:
			resp.Gallery = append(resp.Gallery, list...)
		}
	}

	ticketsList, err := h.tickets.ListForUser(r.Context(), userID)
	if err != nil {
		metrics.RecordSnapshot(err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp.Tickets = append(resp.Tickets, ticketsList...)

	metrics.RecordSnapshot(nil)
	writeJSON(w, http.StatusOK, resp)
}

// --- pets -------------------------------------------------------------------

// mutationEnvelope is the mutation response: the entity plus, when the
// operation was billable, the caller's updated token balance.
type mutationEnvelope struct {
	Entity     interface{} `json:"entity"`
	Tokens     *int64      `json:"tokens,omitempty"`
	TokensUsed *int64      `json:"tokens_used,omitempty"`
}

func entityOnly(e interface{}) mutationEnvelope {
	return mutationEnvelope{Entity: e}
}

func billed(e interface{}, u user.User) mutationEnvelope {
	tokens, used := u.Tokens, u.TokensUsed
	return mutationEnvelope{Entity: e, Tokens: &tokens, TokensUsed: &used}
}

func (h *Handler) listPets(w http.ResponseWriter, r *http.Request) {
	list, err := h.pets.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []pet.Pet{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createPet(w http.ResponseWriter, r *http.Request) {
	var p pet.Pet
	if err := decodeJSON(r.Body, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.pets.Create(r.Context(), middleware.GetUserID(r.Context()), p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, entityOnly(created))
}

func (h *Handler) getPet(w http.ResponseWriter, r *http.Request) {
	p, err := h.pets.Get(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updatePet(w http.ResponseWriter, r *http.Request) {
	var p pet.Pet
	if err := decodeJSON(r.Body, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p.ID = mux.Vars(r)["id"]
	updated, err := h.pets.Update(r.Context(), middleware.GetUserID(r.Context()), p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entityOnly(updated))
}

func (h *Handler) deletePet(w http.ResponseWriter, r *http.Request) {
	if err := h.pets.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- records ----------------------------------------------------------------

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := record.Kind(vars["kind"])
	list, err := h.records.List(r.Context(), middleware.GetUserID(r.Context()), kind)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	petID := vars["id"]
	filtered := make([]record.Generic, 0, len(list))
	for _, g := range list {
		if g.PetID == petID {
			filtered = append(filtered, g)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := record.Kind(vars["kind"])
	userID := middleware.GetUserID(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	r.Body.Close()
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	created, balance, err := h.records.Create(r.Context(), userID, kind, vars["id"], payload)
	metrics.RecordWrite(string(kind), "create", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	metrics.RecordTokensCharged(string(kind), recsvc.Costs[kind])
	writeJSON(w, http.StatusCreated, billed(created, balance))
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, err := h.records.Get(r.Context(), middleware.GetUserID(r.Context()), record.Kind(vars["kind"]), vars["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := record.Kind(vars["kind"])

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	r.Body.Close()

	updated, err := h.records.Update(r.Context(), middleware.GetUserID(r.Context()), kind, vars["id"], payload)
	metrics.RecordWrite(string(kind), "update", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entityOnly(updated))
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := record.Kind(vars["kind"])
	err := h.records.Delete(r.Context(), middleware.GetUserID(r.Context()), kind, vars["id"])
	metrics.RecordWrite(string(kind), "delete", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tickets ----------------------------------------------------------------

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.tickets.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.tickets.Open(r.Context(), middleware.GetUserID(r.Context()), payload.Subject, payload.Body)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, entityOnly(created))
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.tickets.Get(ctx, middleware.GetUserID(ctx), mux.Vars(r)["id"], middleware.IsAdmin(ctx))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) updateTicket(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Status != ticket.StatusClosed {
		writeError(w, http.StatusBadRequest, errors.New("only closing is supported"))
		return
	}
	ctx := r.Context()
	t, err := h.tickets.Close(ctx, middleware.GetUserID(ctx), mux.Vars(r)["id"], middleware.IsAdmin(ctx))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entityOnly(t))
}

func (h *Handler) deleteTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.tickets.Delete(ctx, middleware.GetUserID(ctx), mux.Vars(r)["id"], middleware.IsAdmin(ctx)); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- admin ------------------------------------------------------------------

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []user.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) adminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminGrantTokens(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Amount <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("amount must be positive"))
		return
	}
	u, err := h.users.Grant(r.Context(), mux.Vars(r)["id"], payload.Amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminSetPlan(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Plan      string     `json:"plan"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Plan != user.PlanFree && payload.Plan != user.PlanPremium {
		writeError(w, http.StatusBadRequest, errors.New("unknown plan"))
		return
	}
	u, err := h.users.SetPlan(r.Context(), mux.Vars(r)["id"], payload.Plan, payload.ExpiresAt)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminListTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.tickets.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) adminReplyTicket(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reply string `json:"reply"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, err := h.tickets.Reply(r.Context(), mux.Vars(r)["id"], payload.Reply)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- helpers ----------------------------------------------------------------

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usersvc.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, petsvc.ErrForbidden),
		errors.Is(err, recsvc.ErrForbidden),
		errors.Is(err, ticketsvc.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

// encodeLog reports response-encoding failures; the status line is already
// written at that point, so logging is all that is left to do.
var encodeLog = logger.NewDefault("httpapi")

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		encodeLog.WithError(err).Error("encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
