package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.messenger", "messenger-service", "test")

	var captured telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit_log.messenger", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(2).(telemetry.AuditEnvelope)
	}).Return(nil).Once()

	userID := int64(42)
	emitter.Emit(context.Background(), "INFO", "Message sent", "req-1", &userID)

	publisher.AssertExpectations(t)
	assert.Equal(t, "audit_log", captured.EventType)
	assert.Equal(t, "messenger-service", captured.Service)
	assert.Equal(t, "req-1", captured.RequestID)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, int64(42), *captured.UserID)
	assert.Equal(t, "INFO", captured.Payload.Level)
	assert.Equal(t, "Message sent", captured.Payload.Text)
}

func TestEmitWithoutPublisherIsNoop(t *testing.T) {
	emitter := telemetry.NewAuditEmitter(nil, "audit_log.messenger", "messenger-service", "test")
	emitter.Emit(context.Background(), "INFO", "dropped", "req-1", nil)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.messenger", "messenger-service", "test")

	publisher.On("Publish", mock.Anything, "audit_log.messenger", mock.Anything).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), "ERROR", "failed op", "req-2", nil)
	publisher.AssertExpectations(t)
}
