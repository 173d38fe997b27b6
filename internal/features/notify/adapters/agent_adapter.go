package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/core/httpclient"
	"tracking-sentinel/internal/core/logger"
)

const (
	sendMessagePath = "/api/send-message"
	sendReportPath  = "/api/send-report"

	alertBanner = "🚨 *ALERTA Sentinel Tracker*\n\n"
)

// AgentAdapter sends WhatsApp messages through the relay agent's API.
type AgentAdapter struct {
	client *resty.Client
	log    *zap.Logger
}

// NewAgentAdapter creates an adapter authenticated via the agent API key.
func NewAgentAdapter(cfg config.AgentConfig) *AgentAdapter {
	client := httpclient.NewResty(cfg.URL, 30*time.Second).
		SetHeader("X-API-Key", cfg.APIKey)
	return &AgentAdapter{client: client, log: logger.Named("agent")}
}

type messagePayload struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

type reportPayload struct {
	PhoneNumber string `json:"phone_number"`
	Report      string `json:"report"`
	ClientName  string `json:"client_name"`
}

// SendMessage delivers a plain text message.
func (a *AgentAdapter) SendMessage(ctx context.Context, phoneNumber, message string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(messagePayload{PhoneNumber: phoneNumber, Message: message}).
		Post(sendMessagePath)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", phoneNumber, err)
	}
	if resp.IsError() {
		return fmt.Errorf("message to %s rejected with status %d", phoneNumber, resp.StatusCode())
	}
	a.log.Info("Message sent", zap.String("phone_number", phoneNumber))
	return nil
}

// SendReport delivers a formatted tracking report.
func (a *AgentAdapter) SendReport(ctx context.Context, phoneNumber, report, clientName string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(reportPayload{PhoneNumber: phoneNumber, Report: report, ClientName: clientName}).
		Post(sendReportPath)
	if err != nil {
		return fmt.Errorf("failed to send report to %s: %w", phoneNumber, err)
	}
	if resp.IsError() {
		return fmt.Errorf("report to %s rejected with status %d", phoneNumber, resp.StatusCode())
	}
	a.log.Info("Report sent",
		zap.String("phone_number", phoneNumber),
		zap.String("client_name", clientName))
	return nil
}

// SendAlert delivers an operator alert with the alert banner prefixed.
func (a *AgentAdapter) SendAlert(ctx context.Context, phoneNumber, message string) error {
	return a.SendMessage(ctx, phoneNumber, alertBanner+message)
}
