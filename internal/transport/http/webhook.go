package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	dispatchDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/event/parser"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/lo"
)

const (
	maxWebhookBody  = 1 << 20
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
)

type webhookResponse struct {
	Message  string                   `json:"message"`
	Outcomes []dispatchDomain.Outcome `json:"outcomes"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// handleVerify answers the subscription handshake by echoing hub.challenge
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if s.cfg.WebhookVerifyToken != "" && query.Get("hub.verify_token") != s.cfg.WebhookVerifyToken {
		s.logger.Warn("Webhook verification rejected", "mode", query.Get("hub.mode"))
		http.Error(w, "Verification token mismatch", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, query.Get("hub.challenge"))
}

// handleWebhook dispatches every event of a delivery. Processing failures
// are reported in the body with status 200 so the platform does not
// redeliver; only an unreadable payload gets a 500.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Error processing webhook", Error: err.Error()})
		return
	}

	if s.cfg.WebhookAppSecret != "" && !validSignature(s.cfg.WebhookAppSecret, body, r.Header.Get(signatureHeader)) {
		s.logger.Warn("Webhook signature rejected", "error", appErrors.ErrInvalidSignature)
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "Invalid signature", Error: appErrors.ErrInvalidSignature.Error()})
		return
	}

	events, err := parser.Parse(body)
	if err != nil {
		s.logger.Error("Failed to parse webhook payload", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Error processing webhook", Error: err.Error()})
		return
	}

	outcomes := make([]dispatchDomain.Outcome, 0, len(events))
	for _, ev := range events {
		outcomes = append(outcomes, s.dispatcher.Dispatch(r.Context(), ev.Normalize()))
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Message:  summarize(outcomes),
		Outcomes: outcomes,
	})
}

func summarize(outcomes []dispatchDomain.Outcome) string {
	has := func(pred func(o dispatchDomain.Outcome) bool) bool {
		return lo.ContainsBy(outcomes, pred)
	}

	switch {
	case has(func(o dispatchDomain.Outcome) bool { return o.Status == dispatchDomain.StatusHandled }):
		return "Automated replies sent"
	case has(func(o dispatchDomain.Outcome) bool { return o.Status == dispatchDomain.StatusError }):
		return "Event processing failed"
	case has(func(o dispatchDomain.Outcome) bool {
		return o.Reason == dispatchDomain.ReasonDuplicate || o.Reason == dispatchDomain.ReasonReplyComment
	}):
		return "Comment already processed or is a reply"
	default:
		return "No valid automation type found"
	}
}

func validSignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
