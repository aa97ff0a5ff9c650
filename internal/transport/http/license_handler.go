package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"rcslicense/internal/document"
	licenseErrors "rcslicense/internal/errors"
	"rcslicense/internal/expiry"
	"rcslicense/internal/license"
	"rcslicense/internal/middleware"
	api "rcslicense/pkg/contracts/api/v1"
)

// ContentTypeLicense is the media type of license files.
const ContentTypeLicense = "application/x-yaml"

// LicenseFilename is the suggested download name of an issued license.
const LicenseFilename = "rcs.lic"

const expiryLayout = "2006-01-02 15:04:05 UTC"

// LicenseService is the part of license.Service the handlers use.
type LicenseService interface {
	GenerateDefault(ctx context.Context) (*document.Document, error)
	Load(ctx context.Context, data []byte) (*document.Document, *license.Report, error)
	ApplyOverrides(ctx context.Context, doc *document.Document, o license.Overrides) error
	Validate(ctx context.Context, doc *document.Document) (expiry.Status, error)
	Finalize(ctx context.Context, doc *document.Document) ([]byte, error)
	Dump(doc *document.Document) string
}

// LicenseHandler handles license issuing requests
type LicenseHandler struct {
	service      LicenseService
	errorHandler *licenseErrors.ErrorHandler
	validator    *middleware.Validator
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service LicenseService, errorHandler *licenseErrors.ErrorHandler, validator *middleware.Validator, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:      service,
		errorHandler: errorHandler,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/generate", h.Generate)
	r.Post("/inspect", h.Inspect)
	r.Post("/reissue", h.Reissue)

	return r
}

// Generate handles POST /licenses/generate
func (h *LicenseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.GenerateRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.errorHandler.HandleError(w, r, err)
				return
			}
			h.errorHandler.Validation(w, r, map[string]string{"body": "request body must be a JSON object"})
			return
		}
	}
	if fields, err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	} else if fields != nil {
		h.errorHandler.Validation(w, r, fields)
		return
	}

	overrides, err := license.ParseOverrides(req.Version, req.Hidden)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	doc, err := h.service.GenerateDefault(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := applyLimits(doc, req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.service.ApplyOverrides(ctx, doc, overrides); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := h.service.Finalize(ctx, doc)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license generated",
		slog.Int("bytes", len(data)),
		slog.String("version", req.Version),
	)
	writeLicense(w, data, nil)
}

// Inspect handles POST /licenses/inspect. ?verbose=true adds the full dump.
// Expired licenses and broken agent limits are answered with a problem.
func (h *LicenseHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorHandler.HandleError(w, r, bodyError(err))
		return
	}

	doc, report, err := h.service.Load(ctx, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if _, err := h.service.Validate(ctx, doc); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := newInspectResponse(report)
	if verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); verbose {
		resp.Dump = h.service.Dump(doc)
	}

	render.JSON(w, r, resp)
}

// Reissue handles POST /licenses/reissue?version=&hidden=
func (h *LicenseHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := api.ReissueParams{
		Version: r.URL.Query().Get("version"),
		Hidden:  r.URL.Query().Get("hidden"),
	}
	if fields, err := h.validator.ValidateStruct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	} else if fields != nil {
		h.errorHandler.Validation(w, r, fields)
		return
	}

	overrides, err := license.ParseOverrides(params.Version, params.Hidden)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorHandler.HandleError(w, r, bodyError(err))
		return
	}

	doc, report, err := h.service.Load(ctx, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.service.ApplyOverrides(ctx, doc, overrides); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out, err := h.service.Finalize(ctx, doc)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license reissued",
		slog.Int("bytes", len(out)),
		slog.Int("advisories", len(report.Advisories)),
	)
	writeLicense(w, out, report)
}

func writeLicense(w http.ResponseWriter, data []byte, report *license.Report) {
	w.Header().Set("Content-Type", ContentTypeLicense)
	w.Header().Set("Content-Disposition", `attachment; filename="`+LicenseFilename+`"`)
	if report != nil && report.HasAdvisories() {
		codes := make([]string, 0, len(report.Advisories))
		for _, a := range report.Advisories {
			codes = append(codes, a.Code)
		}
		w.Header().Set("X-License-Advisories", strings.Join(codes, ","))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// applyLimits copies the limits of a generate request onto doc.
func applyLimits(doc *document.Document, req api.GenerateRequest) error {
	if req.Serial != "" {
		doc.Set(document.FieldSerial, req.Serial)
	}
	if req.Users != nil {
		doc.Set(document.FieldUsers, *req.Users)
	}
	if req.Expiry != "" {
		at, err := time.Parse("2006-01-02", req.Expiry)
		if err != nil {
			return licenseErrors.InvalidOverride("expiry", "expected YYYY-MM-DD, got %q", req.Expiry)
		}
		doc.Set(document.FieldExpiry, at.Format(expiryLayout))
	}
	if req.Agents != nil {
		agents, err := doc.Agents()
		if err != nil {
			return err
		}
		agents.Set(document.AgentsTotal, req.Agents.Total)
		agents.Set(document.AgentsDesktop, req.Agents.Desktop)
		agents.Set(document.AgentsMobile, req.Agents.Mobile)
	}
	return nil
}

func newInspectResponse(report *license.Report) api.InspectResponse {
	resp := api.InspectResponse{
		Version:        report.Version,
		Serial:         report.Serial,
		DongleRequired: report.DongleRequired,
		Encryption:     report.Encryption,
		Expiry:         "Never",
		SignatureValid: report.Verification.SignatureValid,
		IntegrityValid: report.Verification.IntegrityValid,
		Advisories:     make([]api.Advisory, 0, len(report.Advisories)),
		Migrations:     append([]string{}, report.Migrations...),
	}
	if at := report.VisibleExpiry(); at != nil {
		resp.Expiry = at.UTC().Format(time.RFC3339)
	}
	if at := report.HiddenExpiry(); at != nil {
		resp.HiddenExpiry = at.UTC().Format(time.RFC3339)
	}
	for _, a := range report.Advisories {
		resp.Advisories = append(resp.Advisories, api.Advisory{Code: a.Code, Message: a.Message})
	}
	return resp
}

// bodyError classifies a request body read or decode failure.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return licenseErrors.Malformed("", "invalid request body: %v", err)
}
