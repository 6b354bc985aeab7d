// Package whatsapp sends stock notifications through the WhatsApp Cloud API.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/config"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	client "github.com/mamadbah2/uniformstock/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// DigestSource produces the low stock summary text.
type DigestSource interface {
	LowStockDigest(ctx context.Context) (string, bool, error)
}

// MetaWhatsAppService is the production notifier backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	digest DigestSource
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, digest DigestSource, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		digest: digest,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// SendOutbound pushes a single text notification.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		return errors.New("recipient and message are required")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("send outbound to %s: %w", req.To, err)
	}
	return nil
}

// NotifyLowStock sends the low stock digest to the alert recipient when any variant is
// low or out of stock. It reports whether a message was sent.
func (s *MetaWhatsAppService) NotifyLowStock(ctx context.Context) (bool, error) {
	message, alert, err := s.digest.LowStockDigest(ctx)
	if err != nil {
		return false, fmt.Errorf("build low stock digest: %w", err)
	}
	if !alert {
		s.logger.Debug("no low stock to report")
		return false, nil
	}

	if err := s.SendOutbound(ctx, models.OutboundMessageRequest{To: s.cfg.AlertRecipient, Message: message}); err != nil {
		return false, err
	}
	s.logger.Info("low stock alert sent", zap.String("to", s.cfg.AlertRecipient))
	return true, nil
}
