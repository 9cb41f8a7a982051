package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pixelmint/pixelmint/internal/creem"
	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/models"
	"github.com/pixelmint/pixelmint/internal/nanobanana"
	"github.com/pixelmint/pixelmint/internal/service"
)

type generateRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"imageBase64"`
	Model       string `json:"model"`
	Size        string `json:"size"`
}

type imageData struct {
	URL string `json:"url"`
}

type generateResponse struct {
	Data             []imageData `json:"data"`
	TaskID           string      `json:"task_id,omitempty"`
	Status           string      `json:"status,omitempty"`
	CreditsRemaining int         `json:"credits_remaining"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := s.generation.Generate(r.Context(), user, service.GenerateRequest{
		Prompt:       req.Prompt,
		ImageDataURL: req.ImageBase64,
		Model:        models.ModelID(req.Model),
		Size:         req.Size,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	data := make([]imageData, 0, len(result.URLs))
	for _, url := range result.URLs {
		data = append(data, imageData{URL: url})
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Data:             data,
		TaskID:           result.TaskID,
		Status:           result.Status,
		CreditsRemaining: result.Balance,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	balance, err := s.wallet.Balance(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleUsageRecords(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	page, pageSize, err := pageParams(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	records, pagination, err := s.wallet.ListUsage(r.Context(), user.ID, page, pageSize)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       records,
		"pagination": pagination,
	})
}

func (s *Server) handleRechargeRecords(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	page, pageSize, err := pageParams(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	records, pagination, err := s.wallet.ListRecharges(r.Context(), user.ID, page, pageSize)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       records,
		"pagination": pagination,
	})
}

type checkoutRequest struct {
	Credits      int    `json:"credits"`
	PlanID       string `json:"planId"`
	BillingCycle string `json:"billingCycle"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var session *creem.CheckoutSession
	var err error
	switch {
	case req.Credits > 0:
		session, err = s.payments.CreateCheckout(r.Context(), user, req.Credits)
	case req.PlanID != "" && req.BillingCycle != "":
		session, err = s.payments.CreateSubscriptionCheckout(r.Context(), user, req.PlanID, req.BillingCycle)
	default:
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkout_url": session.CheckoutURL,
		"session_id":   session.ID,
	})
}

func (s *Server) handleCreemWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get(creem.SignatureHeader)
	if signature == "" {
		writeError(w, http.StatusUnauthorized, "Missing signature")
		return
	}

	if err := s.payments.HandleWebhook(r.Context(), body, signature); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			writeError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
		s.log.Error("webhook processing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// pageParams reads the pagination query. A non-numeric page falls back to 1;
// a non-numeric pageSize is rejected the same way as an out-of-set one.
func pageParams(r *http.Request) (int, int, error) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	pageSize := 10
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, &service.ValidationError{Message: "Invalid page size. Must be 10, 20, 50, or 100"}
		}
		pageSize = parsed
	}
	return page, pageSize, nil
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	var creditsErr *service.InsufficientCreditsError
	if errors.As(err, &creditsErr) {
		writeError(w, http.StatusPaymentRequired, creditsErr.Error())
		return
	}

	if errors.Is(err, nanobanana.ErrNotConfigured) || errors.Is(err, creem.ErrNotConfigured) {
		s.log.Error("provider not configured", "err", err)
		writeError(w, http.StatusInternalServerError, "API configuration error. Please check server configuration.")
		return
	}

	var taskErr *nanobanana.TaskFailedError
	if errors.As(err, &taskErr) {
		s.log.Error("generation task failed", "err", err)
		writeError(w, http.StatusInternalServerError, taskErr.Message)
		return
	}

	if errors.Is(err, nanobanana.ErrTaskTimeout) || errors.Is(err, nanobanana.ErrNoImagesFound) {
		s.log.Error("generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Error("internal error", "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
