package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/metrics"
	"github.com/AngelCh415/adboard/internal/utils"
)

const multipartMemory = 8 << 20

type handlers struct {
	log       *slog.Logger
	pipe      *ingest.Pipeline
	svc       *metrics.Service
	maxUpload int64
}

type resultResponse struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Total      int        `json:"total"`
	Message    string     `json:"message"`
	Version    string     `json:"version,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

type emptyResponse struct {
	Success     bool   `json:"success"`
	NeedsUpload bool   `json:"needsUpload"`
	Message     string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type profileKey struct{}

func (h *handlers) profileCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "profile")
		prof, ok := h.pipe.Profiles().Get(name)
		if !ok {
			h.fail(w, r, fmt.Errorf("%w: %s", ingest.ErrUnknownProfile, name))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, prof)))
	})
}

func profileFrom(r *http.Request) ingest.Profile {
	p, _ := r.Context().Value(profileKey{}).(ingest.Profile)
	return p
}

func (h *handlers) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := h.pipe.Profiles().List()
	render.JSON(w, r, resultResponse{
		Success: true,
		Data:    profiles,
		Total:   len(profiles),
		Message: "ok",
	})
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	prof := profileFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, r, &ingest.ValidationError{Err: ingest.ErrFileTooLarge, Detail: fmt.Sprintf("limit is %d bytes", h.maxUpload)})
			return
		}
		h.fail(w, r, &ingest.ValidationError{Err: ingest.ErrMissingFile, Detail: err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, &ingest.ValidationError{Err: ingest.ErrMissingFile})
		return
	}
	defer file.Close()

	snap, err := h.pipe.Process(r.Context(), prof.Name, hdr.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resultResponse{
		Success:    true,
		Data:       snap.Data(),
		Total:      snap.Total,
		Message:    fmt.Sprintf("processed %d rows from %s", snap.Total, hdr.Filename),
		Version:    snap.Version,
		UploadedAt: &snap.UploadedAt,
	})
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	prof := profileFrom(r)
	snap, ok, err := h.svc.Current(r.Context(), prof.Name, r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		render.JSON(w, r, emptyResponse{NeedsUpload: true, Message: "no data uploaded yet"})
		return
	}
	render.JSON(w, r, resultResponse{
		Success:    true,
		Data:       snap.Data(),
		Total:      snap.Total,
		Message:    snap.FileName,
		Version:    snap.Version,
		UploadedAt: &snap.UploadedAt,
	})
}

func (h *handlers) daily(w http.ResponseWriter, r *http.Request) {
	prof := profileFrom(r)
	buckets, ok, err := h.svc.Daily(r.Context(), prof.Name, r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		render.JSON(w, r, emptyResponse{NeedsUpload: true, Message: "no ads data uploaded yet"})
		return
	}
	render.JSON(w, r, resultResponse{
		Success: true,
		Data:    buckets,
		Total:   len(buckets),
		Message: "ok",
	})
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	prof := profileFrom(r)
	if err := h.svc.Clear(r.Context(), prof.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.InfoContext(r.Context(), "snapshot cleared", slog.String("profile", prof.Name), slog.String("rid", utils.RID(r.Context())))
	render.JSON(w, r, emptyResponse{Success: true, NeedsUpload: true, Message: "cleared"})
}

// fail maps ingest errors onto status codes: validation problems are 400,
// unknown profiles 404, everything else 500 with the cause as details.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ingest.ValidationError
	switch {
	case errors.Is(err, ingest.ErrUnknownProfile):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: ingest.ErrUnknownProfile.Error(), Details: chi.URLParam(r, "profile")})
	case errors.As(err, &ve):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: ve.Err.Error(), Details: ve.Detail})
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("rid", utils.RID(r.Context())),
			slog.String("err", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "failed to process request", Details: err.Error()})
	}
}
