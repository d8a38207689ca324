package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribersInOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var calls []string
	dispatcher.Subscribe(EventReportSubmitted, func(_ context.Context, event Event) error {
		calls = append(calls, "first")
		require.Equal(t, int64(7), event.ReportID)
		return nil
	})
	dispatcher.Subscribe(EventReportSubmitted, func(_ context.Context, _ Event) error {
		calls = append(calls, "second")
		return nil
	})
	dispatcher.Subscribe(EventReportClaimed, func(_ context.Context, _ Event) error {
		calls = append(calls, "wrong type")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventReportSubmitted, ReportID: 7})
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishAbsorbsHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var reached bool
	dispatcher.Subscribe(EventReportCompleted, func(_ context.Context, _ Event) error {
		return errors.New("handler blew up")
	})
	dispatcher.Subscribe(EventReportCompleted, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventReportCompleted})
	require.NoError(t, err)
	require.True(t, reached)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventReportSubmitted}))
}
