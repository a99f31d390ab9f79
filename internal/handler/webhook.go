package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/inbox"
	"github.com/josh-kwaku/civitas/internal/logging"
)

const signatureHeader = "X-Signature"

type messageInbox interface {
	Enqueue(ctx context.Context, env inbox.Envelope) (bool, error)
}

type messageLookup interface {
	GetByMessageID(ctx context.Context, messageID string) (*domain.InboundMessage, error)
}

// InboundHandler accepts signed messages from the mail gateway and queues
// them for the processor.
type InboundHandler struct {
	inbox    messageInbox
	messages messageLookup
	secret   string
}

func NewInboundHandler(in messageInbox, messages messageLookup, secret string) *InboundHandler {
	return &InboundHandler{inbox: in, messages: messages, secret: secret}
}

type inboundStatus struct {
	Status    string        `json:"status"`
	MessageID string        `json:"message_id"`
	Reply     *domain.Reply `json:"reply,omitempty"`
}

func validateEnvelope(env inbox.Envelope) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(env.MessageID) == "" {
		errs = append(errs, FieldError{Field: "message_id", Message: "required"})
	}

	if strings.TrimSpace(env.From) == "" {
		errs = append(errs, FieldError{Field: "from", Message: "required"})
	} else if _, err := domain.NormalizeEmail(env.From); err != nil {
		errs = append(errs, FieldError{Field: "from", Message: "must be an email address"})
	}

	return errs
}

func (h *InboundHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read inbound body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if !verifyHMAC(body, r.Header.Get(signatureHeader), h.secret) {
		log.Warn("inbound signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var env inbox.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Warn("failed to parse inbound message", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := validateEnvelope(env); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	stored, err := h.inbox.Enqueue(r.Context(), env)
	if err != nil {
		log.Error("failed to store inbound message", "error", err, "message_id", env.MessageID)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	if stored {
		RespondSuccess(w, http.StatusAccepted, inboundStatus{Status: "received", MessageID: env.MessageID})
		return
	}

	// A redelivery gets whatever reply the first delivery produced.
	status := inboundStatus{Status: "already_received", MessageID: env.MessageID}
	prior, err := h.messages.GetByMessageID(r.Context(), strings.TrimSpace(env.MessageID))
	if err != nil {
		log.Warn("duplicate message lookup failed", "error", err, "message_id", env.MessageID)
	} else if prior.Reply != nil {
		status.Status = string(prior.Status)
		status.Reply = prior.Reply
	}
	RespondSuccess(w, http.StatusOK, status)
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
