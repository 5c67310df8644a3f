package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"smartmeter-synth/internal/audit"
	"smartmeter-synth/internal/auth"
	generationapp "smartmeter-synth/internal/generation/application"
	generation "smartmeter-synth/internal/generation/domain"
	"smartmeter-synth/internal/generation/interfaces"
	"smartmeter-synth/internal/observability/metrics"
)

const (
	// SeedHeader carries the seed of deterministic runs.
	SeedHeader = "X-Generation-Seed"
	// RunIDHeader carries the run id of every successful run.
	RunIDHeader = "X-Generation-Run-ID"

	maxBodyBytes   = 1 << 20
	exportBaseName = "consumption"
)

// Handler provides generation HTTP endpoints.
type Handler struct {
	service     *generationapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler. auditLogger may be nil.
func NewHandler(service *generationapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("generation handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// Register mounts the generation routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/generate", h.handleGenerate)
	mux.HandleFunc("/api/v1/mpans/validate", h.handleValidate)
	mux.HandleFunc("/api/v1/business-types", h.handleBusinessTypes)
	mux.HandleFunc("/api/v1/limits", h.handleLimits)
	mux.HandleFunc("/api/v1/exports/", h.handleExport)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generationapp.GenerateRequest
	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()
		if len(bytes.TrimSpace(body)) > 0 {
			decoder := json.NewDecoder(bytes.NewReader(body))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
	case http.MethodGet:
		parsed, err := requestFromQuery(r.URL.Query())
		if err != nil {
			respondError(w, err)
			return
		}
		req = parsed
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := h.service.GenerateRequest(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	writeRunHeaders(w, result)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(interfaces.ToMeterRecords(result.Dataset))

	h.logAudit(r, audit.ActionGenerate, result, "json")
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mpan := strings.TrimSpace(r.URL.Query().Get("mpan"))
	if mpan == "" {
		http.Error(w, "mpan required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"mpan":  mpan,
		"valid": generation.ValidateMpan(mpan),
	})
}

func (h *Handler) handleBusinessTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	type businessTypeResponse struct {
		Name     string  `json:"name"`
		DailyKWh float64 `json:"daily_kwh"`
	}
	known := generation.KnownBusinessTypes()
	resp := make([]businessTypeResponse, 0, len(known))
	for _, bt := range known {
		resp = append(resp, businessTypeResponse{Name: string(bt), DailyKWh: generation.ProfileFor(bt).DailyKWh})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.service.Limits())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := path.Base(r.URL.Path)
	base, ext, ok := strings.Cut(name, ".")
	if !ok || base != exportBaseName {
		http.NotFound(w, r)
		return
	}
	format, err := interfaces.ParseFormat(ext)
	if err != nil || format == interfaces.FormatJSON {
		http.NotFound(w, r)
		return
	}

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := h.service.GenerateRequest(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := interfaces.Export(&buf, format, result.Dataset); err != nil {
		if errors.Is(err, interfaces.ErrExportTooLarge) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	writeRunHeaders(w, result)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportBaseName+"-"+result.RunID+"."+string(format)))
	_, _ = w.Write(buf.Bytes())

	h.logAudit(r, audit.ActionExport, result, string(format))
}

func (h *Handler) logAudit(r *http.Request, action string, result *generationapp.Result, format string) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" || result == nil || result.Dataset == nil {
		return
	}
	dataset := result.Dataset
	actual, estimated, missing := dataset.DayCounts()
	meta := map[string]any{
		"format":         format,
		"business_type":  string(dataset.BusinessType),
		"site_name":      dataset.SiteName,
		"period":         dataset.PeriodMinutes,
		"meters":         len(dataset.Meters),
		"days_actual":    actual,
		"days_estimated": estimated,
		"days_missing":   missing,
		"deterministic":  dataset.Deterministic,
	}
	if dataset.Deterministic {
		meta["seed"] = dataset.Seed
	}
	payload, _ := json.Marshal(meta)
	err := h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: audit.ResourceDataset,
		ResourceID:   result.RunID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		metrics.IncAuditError()
	}
}

func writeRunHeaders(w http.ResponseWriter, result *generationapp.Result) {
	w.Header().Set(RunIDHeader, result.RunID)
	if result.Dataset.Deterministic {
		w.Header().Set(SeedHeader, interfaces.FormatSeed(result.Dataset.Seed))
	}
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generation.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, generation.ErrGenerationExhausted):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "generation failed", http.StatusInternalServerError)
	}
}

func requestFromQuery(values url.Values) (generationapp.GenerateRequest, error) {
	req := generationapp.GenerateRequest{
		StartDate:        values.Get("start_date"),
		EndDate:          values.Get("end_date"),
		BusinessType:     values.Get("business_type"),
		MeasurementClass: values.Get("measurement_class"),
	}
	var err error
	if req.Period, err = optionalInt(values, "period"); err != nil {
		return req, err
	}
	if req.MeterCount, err = optionalInt(values, "meter_count"); err != nil {
		return req, err
	}
	if values.Has("site_name") {
		site := values.Get("site_name")
		req.SiteName = &site
	}
	if raw := values.Get("deterministic"); raw != "" {
		parsed, perr := strconv.ParseBool(raw)
		if perr != nil {
			return req, fmt.Errorf("%w: deterministic must be a boolean", generation.ErrInvalidArgument)
		}
		req.Deterministic = &parsed
	}
	if raw := values.Get("seed"); raw != "" {
		parsed, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return req, fmt.Errorf("%w: seed must be an integer", generation.ErrInvalidArgument)
		}
		req.Seed = &parsed
	}
	if req.EstimatedRate, err = optionalFloat(values, "estimated_rate"); err != nil {
		return req, err
	}
	if req.MissingRate, err = optionalFloat(values, "missing_rate"); err != nil {
		return req, err
	}
	for _, raw := range values["meter_ids"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.MeterIDs = append(req.MeterIDs, id)
			}
		}
	}
	return req, nil
}

func optionalInt(values url.Values, key string) (*int, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", generation.ErrInvalidArgument, key)
	}
	return &parsed, nil
}

func optionalFloat(values url.Values, key string) (*float64, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", generation.ErrInvalidArgument, key)
	}
	return &parsed, nil
}
