package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/auth"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/errs"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/models"
	"github.com/pagepulse/pagepulse/internal/orchestrator"
	"github.com/pagepulse/pagepulse/internal/report"
	"github.com/pagepulse/pagepulse/internal/storage"
)

const stateCookieName = "pagepulse_state"

// Catalog is the slice of the upstream client the catalog endpoints consume.
type Catalog interface {
	ListProducts(ctx context.Context, creds *models.ShopCredentials) ([]models.Product, error)
	ListOrderTags(ctx context.Context, creds *models.ShopCredentials, dateRange models.DateRange) ([]string, error)
}

// Runner executes comparison requests.
type Runner interface {
	Run(ctx context.Context, creds *models.ShopCredentials, req orchestrator.Request) (*models.ComparisonResult, error)
}

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Shops    storage.ShopStore
	Sessions *auth.Sessions
	OAuth    *auth.OAuth
	Catalog  Catalog
	Pipeline Runner
}

// Server wraps the HTTP handlers.
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	shops    storage.ShopStore
	sessions *auth.Sessions
	oauth    *auth.OAuth
	catalog  Catalog
	pipeline Runner
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		config:   deps.Config,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		shops:    deps.Shops,
		sessions: deps.Sessions,
		oauth:    deps.OAuth,
		catalog:  deps.Catalog,
		pipeline: deps.Pipeline,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// OAuth
	mux.HandleFunc("/auth", s.handleAuth)
	mux.HandleFunc("/auth/callback", s.handleAuthCallback)

	// Analytics
	mux.HandleFunc("/analytics", s.handleAnalytics)
	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/tags", s.handleTags)
	mux.HandleFunc("/export", s.handleExport)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- OAuth ----

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shop := r.URL.Query().Get("shop")
	if !auth.ValidShopDomain(shop) {
		s.errorResponse(w, "missing or invalid shop parameter", http.StatusBadRequest)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.config.IsProduction(),
	})

	http.Redirect(w, r, s.oauth.AuthorizeURL(shop, state), http.StatusFound)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	shop := q.Get("shop")
	if !auth.ValidShopDomain(shop) {
		s.errorResponse(w, "missing or invalid shop parameter", http.StatusBadRequest)
		return
	}

	if !s.oauth.VerifyHMAC(q) {
		s.logger.Warn("oauth callback hmac mismatch", zap.String("shop", shop))
		s.errorResponse(w, "hmac verification failed", http.StatusForbidden)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		s.errorResponse(w, "state mismatch", http.StatusForbidden)
		return
	}

	token, scope, err := s.oauth.ExchangeToken(r.Context(), shop, q.Get("code"))
	if err != nil {
		s.logger.Error("token exchange failed", zap.String("shop", shop), zap.Error(err))
		s.errorResponse(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	creds := &models.ShopCredentials{
		Shop:        shop,
		AccessToken: token,
		Scope:       scope,
		InstalledAt: time.Now().UTC(),
	}
	if err := s.shops.Upsert(r.Context(), creds); err != nil {
		s.logger.Error("credential persist failed", zap.String("shop", shop), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	session, err := s.sessions.Issue(shop)
	if err != nil {
		s.logger.Error("session issue failed", zap.String("shop", shop), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Clear the state cookie and install the session.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, s.sessions.Cookie(session))

	s.logger.Info("shop installed", zap.String("shop", shop))
	http.Redirect(w, r, "/", http.StatusFound)
}

// ---- Analytics ----

type analyticsRequest struct {
	URLs      []string          `json:"urls"`
	DateRange models.DateRange  `json:"dateRange"`
	TagFilter *models.TagFilter `json:"tagFilter,omitempty"`
	Refresh   bool              `json:"refresh,omitempty"`
	Strategy  string            `json:"strategy,omitempty"`
}

type analyticsResponse struct {
	Pages       []models.PageMetrics `json:"pages"`
	DateRange   models.DateRange     `json:"dateRange"`
	TagFilter   *models.TagFilter    `json:"tagFilter,omitempty"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := s.authenticate(r)
	if err != nil {
		s.taxonomyError(w, err)
		return
	}

	var req analyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Run(r.Context(), creds, orchestrator.Request{
		URLs:      req.URLs,
		DateRange: req.DateRange,
		TagFilter: req.TagFilter,
		Strategy:  req.Strategy,
		Refresh:   req.Refresh,
	})
	if err != nil {
		s.taxonomyError(w, err)
		return
	}

	s.jsonResponse(w, analyticsResponse{
		Pages:       result.Pages,
		DateRange:   result.DateRange,
		TagFilter:   result.TagFilter,
		LastUpdated: result.ComputedAt,
	})
}

// ---- Catalog ----

type productEntry struct {
	Title  string `json:"title"`
	Handle string `json:"handle"`
	URL    string `json:"url"`
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := s.authenticate(r)
	if err != nil {
		s.taxonomyError(w, err)
		return
	}

	products, err := s.catalog.ListProducts(r.Context(), creds)
	if err != nil {
		s.taxonomyError(w, err)
		return
	}

	entries := make([]productEntry, 0, len(products))
	for _, p := range products {
		entries = append(entries, productEntry{
			Title:  p.Title,
			Handle: p.Handle,
			URL:    "/products/" + p.Handle,
		})
	}
	s.jsonResponse(w, map[string][]productEntry{"products": entries})
}

// tagWindowDays bounds the order scan when the client gives no range.
const tagWindowDays = 90

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := s.authenticate(r)
	if err != nil {
		s.taxonomyError(w, err)
		return
	}

	dateRange := models.DateRange{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if dateRange.Start == "" || dateRange.End == "" {
		now := time.Now().UTC()
		dateRange = models.DateRange{
			Start: now.AddDate(0, 0, -tagWindowDays).Format("2006-01-02"),
			End:   now.Format("2006-01-02"),
		}
	}
	if err := dateRange.Validate(); err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	tags, err := s.catalog.ListOrderTags(r.Context(), creds, dateRange)
	if err != nil {
		s.taxonomyError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	s.jsonResponse(w, map[string][]string{"tags": tags})
}

// ---- Export ----

type exportRequest struct {
	Pages     []models.PageMetrics `json:"pages"`
	DateRange models.DateRange     `json:"dateRange"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := s.authenticate(r); err != nil {
		s.taxonomyError(w, err)
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Pages) == 0 {
		s.errorResponse(w, "pages is required", http.StatusBadRequest)
		return
	}
	if err := req.DateRange.Validate(); err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(req.DateRange)+`"`)
	_, _ = w.Write([]byte(report.RenderCSV(req.Pages)))
}

// ---- Helper Methods ----

// authenticate resolves the session cookie to stored shop credentials.
func (s *Server) authenticate(r *http.Request) (*models.ShopCredentials, error) {
	shop, err := s.sessions.ShopFromRequest(r)
	if err != nil {
		return nil, err
	}
	creds, err := s.shops.Get(r.Context(), shop)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errs.ErrAuthRequired
	}
	return creds, nil
}

// taxonomyError renders an error through the taxonomy's status and client
// message mapping. Internals are logged, never echoed.
func (s *Server) taxonomyError(w http.ResponseWriter, err error) {
	code := errs.StatusCode(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, errs.ClientMessage(err), code)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
