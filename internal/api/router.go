package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kurataraku/survey-app/internal/middleware"
	"github.com/kurataraku/survey-app/internal/services"
)

type Router struct {
	store   Store
	schools *services.SchoolService
	aliases *services.AliasService
	merges  *services.MergeService
	answers *services.AnswerService
	reviews *services.ReviewService
	stats   *services.StatsService
	auth    *services.AuthService
}

func NewRouter() *Router {
	return NewRouterWithStore(newMemoryStore())
}

func NewRouterWithStore(store Store) *Router {
	schoolAdapter := newSchoolStoreAdapter(store)
	reviewAdapter := newReviewStoreAdapter(store)
	answerAdapter := newAnswerStoreAdapter(store)

	schools := services.NewSchoolService(schoolAdapter)
	answers := services.NewAnswerService(answerAdapter)
	return &Router{
		store:   store,
		schools: schools,
		aliases: services.NewAliasService(schoolAdapter),
		merges:  services.NewMergeService(schoolAdapter),
		answers: answers,
		reviews: services.NewReviewService(reviewAdapter, schools, answers),
		stats:   services.NewStatsService(reviewAdapter),
		auth:    services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
	}
}

// Underlying exposes the backing store for startup seeding.
func (rt *Router) Underlying() Store { return rt.store }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/reviews", rt.handleReviews)             // POST
	mux.HandleFunc("/api/schools/search", rt.handleSchoolSearch) // GET ?q=&limit=
	mux.HandleFunc("/api/schools/", rt.handleSchoolScoped)       // GET /api/schools/{id}/summary|reviews

	mux.HandleFunc("/api/auth/register", rt.handleRegister) // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)       // POST

	mux.HandleFunc("/api/admin/schools", rt.handleAdminSchools)        // POST, GET ?status=
	mux.HandleFunc("/api/admin/schools/", rt.handleAdminSchoolScoped)  // approve, merge, aliases, PUT
	mux.HandleFunc("/api/admin/aliases/", rt.handleAdminAliasScoped)   // DELETE /api/admin/aliases/{id}
	mux.HandleFunc("/api/admin/fields", rt.handleAdminFields)          // GET, PUT
	mux.HandleFunc("/api/admin/fields/", rt.handleAdminFieldScoped)    // DELETE /api/admin/fields/{key}
	mux.HandleFunc("/api/admin/reviews/", rt.handleAdminReviewScoped)  // PUT, DELETE
	mux.HandleFunc("/api/admin/audit", rt.handleAdminAudit)            // GET
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": string(se.Code), "message": se.Message})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// requireAdmin extracts the authenticated admin id or writes 401.
func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.AdminIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return uid, true
}

// POST /api/reviews
// { school_name, author_role?, enrollment_status?, rating?, comment?, contact_email?, answers?: {...} }
func (rt *Router) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SchoolName       string         `json:"school_name"`
		AuthorRole       string         `json:"author_role"`
		EnrollmentStatus string         `json:"enrollment_status"`
		Rating           int            `json:"rating"`
		Comment          string         `json:"comment"`
		ContactEmail     string         `json:"contact_email"`
		Answers          map[string]any `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.reviews.Submit(services.SubmitReviewRequest{
		SchoolName:       req.SchoolName,
		AuthorRole:       req.AuthorRole,
		EnrollmentStatus: req.EnrollmentStatus,
		Rating:           req.Rating,
		Comment:          req.Comment,
		ContactEmail:     req.ContactEmail,
		RawAnswers:       req.Answers,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"review_id": res.ReviewID, "school_id": res.SchoolID, "school_created": res.SchoolCreated})
}

// GET /api/schools/search?q=xx&limit=20
func (rt *Router) handleSchoolSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query().Get("q")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	out, err := rt.schools.Search(q, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"schools": out})
}

// GET /api/schools/{id}/summary and GET /api/schools/{id}/reviews
func (rt *Router) handleSchoolScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/schools/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch parts[1] {
	case "summary":
		sum, err := rt.stats.Summary(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sum)
	case "reviews":
		list, err := rt.reviews.ListBySchool(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"school_id": id, "reviews": list})
	default:
		http.NotFound(w, r)
	}
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/admin/schools — create an active school directly.
// GET /api/admin/schools?status=pending — moderation queue.
func (rt *Router) handleAdminSchools(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name        string   `json:"name"`
			Prefectures []string `json:"prefectures"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sc, err := rt.schools.Create(actor, req.Name, req.Prefectures)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sc)
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		if status == "" {
			status = string(services.SchoolPending)
		}
		list, err := rt.schools.ListByStatus(services.SchoolStatus(status))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"schools": list})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Scoped school admin operations:
//
//	POST /api/admin/schools/{id}/approve
//	POST /api/admin/schools/{id}/merge     {"target_id": "..."}
//	GET|POST /api/admin/schools/{id}/aliases
//	PUT|GET /api/admin/schools/{id}
func (rt *Router) handleAdminSchoolScoped(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/schools/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			sc, err := rt.schools.Get(id)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, sc)
		case http.MethodPut:
			var req struct {
				Name        string   `json:"name"`
				Prefectures []string `json:"prefectures"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			sc, err := rt.schools.Update(actor, id, req.Name, req.Prefectures)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, sc)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	switch parts[1] {
	case "approve":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sc, err := rt.schools.Approve(actor, id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sc)
	case "merge":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TargetID string `json:"target_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		counts, err := rt.merges.Merge(actor, id, req.TargetID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, counts)
	case "aliases":
		switch r.Method {
		case http.MethodGet:
			list, err := rt.aliases.ListBySchool(id)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, map[string]any{"school_id": id, "aliases": list})
		case http.MethodPost:
			var req struct {
				Alias string `json:"alias"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			al, err := rt.aliases.Add(actor, id, req.Alias)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, al)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

// DELETE /api/admin/aliases/{id}
func (rt *Router) handleAdminAliasScoped(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/aliases/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if err := rt.aliases.Remove(actor, id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// GET /api/admin/fields — list descriptors.
// PUT /api/admin/fields — upsert one descriptor.
func (rt *Router) handleAdminFields(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := rt.answers.ListDescriptors()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"fields": list})
	case http.MethodPut:
		var d services.FieldDescriptor
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := rt.answers.SaveDescriptor(actor, &d); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, d)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/admin/fields/{key}
func (rt *Router) handleAdminFieldScoped(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/api/admin/fields/")
	if key == "" || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}
	if err := rt.answers.DeleteDescriptor(actor, key); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// PUT /api/admin/reviews/{id} — edit rating/comment. DELETE removes.
func (rt *Router) handleAdminReviewScoped(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/reviews/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Rating  *int    `json:"rating"`
			Comment *string `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rv, err := rt.reviews.Edit(actor, id, req.Rating, req.Comment)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, rv)
	case http.MethodDelete:
		if err := rt.reviews.Delete(actor, id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/admin/audit
func (rt *Router) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"entries": rt.store.ListAudit()})
}
