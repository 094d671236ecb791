package messages

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateDuplicateIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Second insert hits the partial unique index and affects zero rows;
	// Create treats that as success.
	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewStore(mock)
	msg := &ScheduledMessage{
		ID:            "reminder_24h_evt_1_1000",
		AppointmentID: "evt_1",
		CustomerName:  "Jane",
		CustomerPhone: "+15551234567",
		Type:          TypeReminder,
		Content:       "See you tomorrow!",
		FireAt:        time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), msg))
	require.Equal(t, StatusPending, msg.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	cols := []string{"message_id", "appointment_id", "customer_name", "customer_phone",
		"message_type", "content", "fire_at", "status", "last_error", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM scheduled_messages").
		WithArgs(now, 10).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("thank_you_evt_2_900", "evt_2", "Amy", "+15557654321",
				TypeThankYou, "Thanks for coming in!", now.Add(-time.Minute), "pending", "", now, now))

	store := NewStore(mock)
	due, err := store.ListDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "evt_2", due[0].AppointmentID)
	require.Equal(t, StatusPending, due[0].Status)
}

func TestStoreCancelPendingForAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE scheduled_messages SET status = 'cancelled'").
		WithArgs("appointment cancelled", pgxmock.AnyArg(), "evt_3").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	store := NewStore(mock)
	n, err := store.CancelPendingForAppointment(context.Background(), "evt_3", "appointment cancelled")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
