// Package handler implements the facade's HTTP endpoints. Every response
// uses the {status, message, data} envelope the original connector expects.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/middleware"
	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/service"
	"github.com/IoFMT/Inception/internal/store"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	cacheService  *service.CacheService
	tenantService *service.TenantService
	errorHandler  *apierrors.Handler
	logger        *zap.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(
	cacheService *service.CacheService,
	tenantService *service.TenantService,
	errorHandler *apierrors.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		cacheService:  cacheService,
		tenantService: tenantService,
		errorHandler:  errorHandler,
		logger:        logger,
	}
}

// Status handles GET / without authentication.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	h.errorHandler.WriteOK(w, "IoFMT REST API is running", []any{map[string]any{"version": "1.0.0"}})
}

// searchRequest is the body of POST /schedules.
type searchRequest struct {
	SharelinkID    string `json:"sharelink_id"`
	AccessToken    string `json:"access_token"`
	UserID         string `json:"user_id"`
	OrderField     string `json:"order_field"`
	OrderDirection string `json:"order_direction"`
}

// FetchSchedules handles POST /schedules: retrieve from SFG20, normalize,
// and replace the cached partitions.
func (h *Handlers) FetchSchedules(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}
	if req.SharelinkID == "" || req.UserID == "" {
		h.errorHandler.HandleError(w, r, "Error retrieving data from SFG20",
			apierrors.Validation("sharelink_id and user_id are required"))
		return
	}

	apiKey := h.callerKey(r)
	records, err := h.cacheService.FetchAndCache(r.Context(), apiKey, service.FetchRequest{
		UserID:         req.UserID,
		SharelinkID:    req.SharelinkID,
		AccessToken:    req.AccessToken,
		OrderField:     req.OrderField,
		OrderDirection: req.OrderDirection,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error retrieving data from SFG20", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data retrieved successfully from SFG20 and cached in the API", recordsToData(records))
}

// SyncShareLinks handles POST /shared-links: refresh the tenant's share
// links from SFG20 and return them.
func (h *Handlers) SyncShareLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.tenantService.SyncShareLinks(r.Context(), h.callerKey(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error listing SFG20 shared links", err)
		return
	}
	data := make([]any, 0, len(links))
	for _, link := range links {
		data = append(data, map[string]any{"id": link.ID, "name": link.LinkName, "url": link.URL})
	}
	h.errorHandler.WriteOK(w, "List of SFG20 shared links", data)
}

// cacheRequest is the body of POST /cache.
type cacheRequest struct {
	UserID         string `json:"user_id"`
	SharelinkID    string `json:"sharelink_id"`
	ScheduleID     string `json:"schedule_id"`
	Type           string `json:"type"`
	OrderField     string `json:"order_field"`
	OrderDirection string `json:"order_direction"`
}

// QueryCache handles POST /cache: filtered, ordered reads.
func (h *Handlers) QueryCache(w http.ResponseWriter, r *http.Request) {
	var req cacheRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}
	if req.UserID == "" || req.SharelinkID == "" {
		h.errorHandler.HandleError(w, r, "Error retrieving data from SFG20 cache",
			apierrors.Validation("user_id and sharelink_id are required"))
		return
	}

	typ := model.EntityType("")
	if req.Type != "" {
		parsed, err := model.ParseEntityType(req.Type)
		if err != nil {
			h.errorHandler.HandleError(w, r, "Error retrieving data from SFG20 cache",
				apierrors.Validation("%v", err))
			return
		}
		typ = parsed
	}

	records, err := h.cacheService.Query(r.Context(), store.ListFilter{
		UserID:         req.UserID,
		SharelinkID:    req.SharelinkID,
		ScheduleID:     req.ScheduleID,
		Type:           typ,
		OrderField:     req.OrderField,
		OrderDirection: req.OrderDirection,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error retrieving data from SFG20 cache", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data retrieved successfully from SFG20 cache", recordsToData(records))
}

// ClearCache handles DELETE /cache?user_id=...
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.errorHandler.HandleError(w, r, "Error cleaning data cache",
			apierrors.Validation("user_id is required"))
		return
	}
	if err := h.cacheService.ClearTenant(r.Context(), userID); err != nil {
		h.errorHandler.HandleError(w, r, "Error cleaning data cache", err)
		return
	}
	h.errorHandler.WriteOK(w, "Successfully cleaned data cache for user "+userID, nil)
}

// AddTenant handles POST /config/add.
func (h *Handlers) AddTenant(w http.ResponseWriter, r *http.Request) {
	var cfg model.TenantConfig
	if err := h.decode(w, r, &cfg); err != nil {
		return
	}
	if cfg.APIKey == "" {
		h.errorHandler.HandleError(w, r, "Error saving data in Config table",
			apierrors.Validation("api_key is required"))
		return
	}
	if err := h.tenantService.AddTenant(r.Context(), cfg); err != nil {
		h.errorHandler.HandleError(w, r, "Error saving data in Config table", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data saved successfully in Config table", nil)
}

// DeleteTenant handles DELETE /config/delete/{id}.
func (h *Handlers) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	apiKey := mux.Vars(r)["id"]
	if err := h.tenantService.DeleteTenant(r.Context(), apiKey); err != nil {
		h.errorHandler.HandleError(w, r, "Error deleting data in Config table", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data deleted successfully in Config table", nil)
}

// GetTenants handles GET /config/get/{id}, including the "all" sentinel.
func (h *Handlers) GetTenants(w http.ResponseWriter, r *http.Request) {
	configs, err := h.tenantService.GetTenants(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error retrieving data from Config table", err)
		return
	}
	data := make([]any, 0, len(configs))
	for _, cfg := range configs {
		data = append(data, cfg)
	}
	h.errorHandler.WriteOK(w, "Data retrieved successfully from Config table", data)
}

// GetAccessToken handles GET /config/token for the calling tenant.
func (h *Handlers) GetAccessToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.tenantService.AccessToken(r.Context(), h.callerKey(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error retrieving data from Config table", err)
		return
	}
	h.errorHandler.WriteOK(w, "Access token retrieved successfully from configuration",
		[]any{map[string]any{"access_token": token}})
}

// ListLinks handles GET /config/shared_links for the calling tenant.
func (h *Handlers) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.tenantService.ListLinks(r.Context(), h.callerKey(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, "Error retrieving data from Shared_Links table", err)
		return
	}
	data := make([]any, 0, len(links))
	for _, link := range links {
		data = append(data, map[string]any{"id": link.ID, "name": link.LinkName, "url": link.URL})
	}
	h.errorHandler.WriteOK(w, "Data retrieved successfully from Shared_Links table", data)
}

// SaveLink handles POST /config/shared_links with upsert semantics.
func (h *Handlers) SaveLink(w http.ResponseWriter, r *http.Request) {
	var link model.SharedLink
	if err := h.decode(w, r, &link); err != nil {
		return
	}
	if link.APIKey == "" {
		link.APIKey = h.callerKey(r)
	}
	if link.ID == "" {
		h.errorHandler.HandleError(w, r, "Error saving data in Shared_Links table",
			apierrors.Validation("id is required"))
		return
	}
	if err := h.tenantService.SaveLink(r.Context(), link); err != nil {
		h.errorHandler.HandleError(w, r, "Error saving data in Shared_Links table", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data saved successfully in Shared_Links table", nil)
}

// DeleteLink handles DELETE /config/shared_links/{id} for the calling tenant.
func (h *Handlers) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.tenantService.DeleteLink(r.Context(), h.callerKey(r), mux.Vars(r)["id"]); err != nil {
		h.errorHandler.HandleError(w, r, "Error deleting data in Shared_Links table", err)
		return
	}
	h.errorHandler.WriteOK(w, "Data deleted successfully in Shared_Links table", nil)
}

// callerKey returns the resolved API key from the request identity.
func (h *Handlers) callerKey(r *http.Request) string {
	identity, _ := middleware.IdentityFrom(r.Context())
	return identity.APIKey
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.errorHandler.HandleError(w, r, "Invalid request body", apierrors.Validation("invalid JSON body: %v", err))
		return err
	}
	return nil
}

func recordsToData(records []model.CachedRecord) []any {
	data := make([]any, 0, len(records))
	for _, rec := range records {
		data = append(data, rec)
	}
	return data
}
