package notify

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// Config holds Lark notification configuration. Leaving AppID empty
// disables notifications entirely.
type Config struct {
	AppID      string
	AppSecret  string
	ReviewChat string // chat_id of the benefits review group
}

// LarkNotifier posts a message to the review group whenever a request
// is deferred to manual review. Failures are logged by the caller and
// never fail the submission.
type LarkNotifier struct {
	client     *lark.Client
	reviewChat string
	logger     *zap.Logger
}

// NewLarkNotifier creates a notifier, or nil when unconfigured
func NewLarkNotifier(cfg Config, logger *zap.Logger) *LarkNotifier {
	if cfg.AppID == "" || cfg.ReviewChat == "" {
		logger.Info("Lark notifications disabled")
		return nil
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &LarkNotifier{
		client:     client,
		reviewChat: cfg.ReviewChat,
		logger:     logger,
	}
}

// NotifyPendingReview sends a text message describing the deferred request
func (n *LarkNotifier) NotifyPendingReview(ctx context.Context, request *models.ReimbursementRequest, employee *models.Employee, rationale string) error {
	text := fmt.Sprintf("Reimbursement %s from %s (%s) needs manual review: %s %s. %s",
		request.ID, employee.Name, employee.EmployeeCode,
		request.Amount, request.Currency, rationale)

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to build message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.reviewChat).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send review notification: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("review notification rejected: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	n.logger.Info("Review notification sent",
		zap.String("request_id", request.ID),
		zap.String("chat_id", n.reviewChat))

	return nil
}
