package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/metrics"
	"github.com/samber/oops"
)

// Service sends messages through the Instagram Graph API. Each call is made
// once; a non-2xx answer is returned as an error wrapping ErrDeliveryRejected.
type Service struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

// New creates a new delivery service
func New(cfg *config.Config) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: cfg.DeliveryTimeout},
		baseURL:    strings.TrimRight(cfg.InstagramBaseURL, "/"),
		version:    cfg.InstagramAPIVersion,
	}
}

type directMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type commentReplyRequest struct {
	Message string `json:"message"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendDirectMessage sends text to recipientID from the business account
func (s *Service) SendDirectMessage(ctx context.Context, platformAccountID, recipientID, text, token string) error {
	var body directMessageRequest
	body.Recipient.ID = recipientID
	body.Message.Text = text

	started := time.Now()
	err := s.post(ctx, s.endpoint(platformAccountID, "messages"), token, body)
	metrics.ObserveDelivery("DM", started, err)
	if err != nil {
		return oops.With("platform_account_id", platformAccountID, "recipient_id", recipientID).Wrap(err)
	}
	return nil
}

// SendCommentReply answers a comment publicly on behalf of the business account
func (s *Service) SendCommentReply(ctx context.Context, platformAccountID, commentID, text, token string) error {
	started := time.Now()
	err := s.post(ctx, s.endpoint(commentID, "replies"), token, commentReplyRequest{Message: text})
	metrics.ObserveDelivery("COMMENT", started, err)
	if err != nil {
		return oops.With("platform_account_id", platformAccountID, "comment_id", commentID).Wrap(err)
	}
	return nil
}

func (s *Service) endpoint(node, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", s.baseURL, s.version, url.PathEscape(node), edge)
}

func (s *Service) post(ctx context.Context, endpoint, token string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return oops.With("context", "failed to encode request").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return oops.With("context", "failed to build request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return oops.With("context", "request failed").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ge graphError
	_ = json.Unmarshal(raw, &ge)

	return oops.
		With("status", resp.StatusCode, "graph_error", ge.Error.Message, "graph_code", ge.Error.Code).
		Wrap(appErrors.ErrDeliveryRejected)
}
