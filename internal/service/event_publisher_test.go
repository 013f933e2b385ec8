package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesnap-api/internal/dto"
)

func TestNATSEventPublisherWithoutConnectionIsNoop(t *testing.T) {
	publisher := NewNATSEventPublisher(nil, "attempts.graded", zerolog.Nop())
	require.NoError(t, publisher.PublishAttemptGraded(context.Background(), dto.AttemptGradedEvent{AttemptID: 1}))
}
