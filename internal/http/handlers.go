package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"gofinances/internal/auth"
	"gofinances/internal/export"
	"gofinances/internal/log"
	"gofinances/internal/services"
)

const (
	msgSaveFailed   = "Não foi possível salvar"
	msgLoadFailed   = "Não foi possível carregar as transações"
	msgInvalidInput = "Dados inválidos"
	msgInvalidMonth = "Mês inválido"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.readiness))
	status := http.StatusOK
	for _, c := range s.readiness {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}
	writeJSON(w, r, status, map[string]any{"ready": status == http.StatusOK, "checks": checks})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gofinances"`)
	writeError(w, r, http.StatusUnauthorized, "Não autorizado")
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	view, err := s.svc.Dashboard(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, r, "Failed to load dashboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDashboard(userJSON{ID: id.UserID, Name: id.Name}, view))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	year, month, err := parseMonthParams(r.URL.Query(), s.now().In(s.svc.Aggregator().Location()))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidMonth)
		return
	}

	view, err := s.svc.Resume(r.Context(), id.UserID, year, month)
	if err != nil {
		s.serviceError(w, r, "Failed to load resume", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toResume(view))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	year, month, err := parseMonthParams(r.URL.Query(), s.now().In(s.svc.Aggregator().Location()))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidMonth)
		return
	}

	view, txs, err := s.svc.MonthReport(r.Context(), id.UserID, year, month)
	if err != nil {
		s.serviceError(w, r, "Failed to load month report", err)
		return
	}

	report := export.Report{
		Year:         year,
		Month:        month,
		Total:        view.Total,
		Categories:   view.Categories,
		Transactions: txs,
		Catalog:      s.svc.Catalog(),
		Location:     s.svc.Aggregator().Location(),
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, report); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to build workbook",
			log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		writeError(w, r, http.StatusInternalServerError, "Não foi possível gerar o relatório")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	txs, err := s.svc.Transactions(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, r, "Failed to list transactions", err)
		return
	}
	writeJSON(w, r, http.StatusOK, transactionsResponse{Transactions: toViews(s.svc.Aggregator().List(txs))})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, "Formato da requisição inválido")
		return
	}
	in, fieldErrs := p.RegisterInput()
	if fieldErrs != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: msgInvalidInput, Fields: fieldErrs})
		return
	}

	tx, err := s.svc.Register(r.Context(), id.UserID, in)
	var ve *services.ValidationError
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusCreated, toTransaction(tx))
	case errors.As(err, &ve):
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: msgInvalidInput, Fields: ve.Fields})
	case errors.Is(err, services.ErrPersist):
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: msgSaveFailed, Retryable: true})
	default:
		s.serviceError(w, r, "Failed to register transaction", err)
	}
}

// serviceError maps service errors that have no handler-specific meaning.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidMonth):
		writeError(w, r, http.StatusBadRequest, msgInvalidMonth)
	case errors.Is(err, services.ErrMissingUser):
		s.handleUnauthorized(w, r, err)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err,
			log.ComponentHTTP, log.OpRead, log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: msgLoadFailed, Retryable: true})
	}
}
