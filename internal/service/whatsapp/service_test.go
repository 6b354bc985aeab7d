package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/uniformstock/internal/config"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	client "github.com/mamadbah2/uniformstock/pkg/clients/whatsapp"
)

type recordingClient struct {
	mu   sync.Mutex
	sent []client.SendTextMessageRequest
	err  error
}

func (c *recordingClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

type staticDigest struct {
	text  string
	alert bool
	err   error
}

func (d staticDigest) LowStockDigest(context.Context) (string, bool, error) {
	return d.text, d.alert, d.err
}

func TestNotifyLowStockSendsDigest(t *testing.T) {
	rc := &recordingClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{AlertRecipient: "224600000000"}, rc, staticDigest{text: "2 low", alert: true}, nil)

	sent, err := svc.NotifyLowStock(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, rc.sent, 1)
	assert.Equal(t, "224600000000", rc.sent[0].To)
	assert.Equal(t, "2 low", rc.sent[0].Body)
}

func TestNotifyLowStockQuietWhenHealthy(t *testing.T) {
	rc := &recordingClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{AlertRecipient: "224600000000"}, rc, staticDigest{text: "ok"}, nil)

	sent, err := svc.NotifyLowStock(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, rc.sent)
}

func TestNotifyLowStockPropagatesErrors(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{AlertRecipient: "x"}, &recordingClient{}, staticDigest{err: errors.New("db down")}, nil)
	_, err := svc.NotifyLowStock(context.Background())
	assert.ErrorContains(t, err, "db down")

	svc = NewMetaWhatsAppService(config.WhatsAppConfig{AlertRecipient: "x"}, &recordingClient{err: errors.New("rate limited")}, staticDigest{text: "1 low", alert: true}, nil)
	_, err = svc.NotifyLowStock(context.Background())
	assert.ErrorContains(t, err, "rate limited")
}

func TestSendOutboundRequiresRecipient(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, &recordingClient{}, staticDigest{}, nil)
	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{Message: "hi"})
	assert.Error(t, err)
}
