package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

func newTestKeyDB(t *testing.T) (*KeyDBService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{KeyDBURL: mr.Addr(), KeyDBStatusTTL: time.Hour}

	svc, err := NewKeyDBService(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestKeyDBService_SetAndGetStatus(t *testing.T) {
	svc, mr := newTestKeyDB(t)
	ctx := context.Background()

	delivery := &models.WelcomeDelivery{
		ID:           uuid.New(),
		Recipient:    "jane.doe@gmail.com",
		Provider:     "sendgrid",
		Status:       models.DeliveryStatusFailed,
		ErrorMessage: "sendgrid delivery failed (status 403): forbidden",
	}
	require.NoError(t, svc.SetStatus(ctx, delivery))

	key := "welcome:status:jane.doe@gmail.com"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	status, err := svc.GetStatus(ctx, "Jane.Doe@Gmail.com")
	require.NoError(t, err)
	assert.Equal(t, delivery.ID.String(), status.DeliveryID)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, "sendgrid", status.Provider)
	assert.Equal(t, delivery.ErrorMessage, status.ErrorMessage)
	assert.NotEmpty(t, status.LastUpdated)
}

func TestKeyDBService_GetStatus_NotFound(t *testing.T) {
	svc, _ := newTestKeyDB(t)

	_, err := svc.GetStatus(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, ErrStatusNotFound)
}

func TestKeyDBService_GetStatus_Corrupt(t *testing.T) {
	svc, mr := newTestKeyDB(t)
	require.NoError(t, mr.Set("welcome:status:foo@bar.com", "{not-json"))

	_, err := svc.GetStatus(context.Background(), "foo@bar.com")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStatusNotFound)
}

func TestKeyDBService_Ping(t *testing.T) {
	svc, mr := newTestKeyDB(t)
	assert.True(t, svc.Ping(context.Background()))

	mr.Close()
	assert.False(t, svc.Ping(context.Background()))
}

func TestNewKeyDBService_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewKeyDBService(&config.Config{KeyDBURL: addr})

	assert.Error(t, err)
}
