package kafka_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxEvent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e, err := kafka.NewOutboxEvent("req-1", "leave", "leave-1", events.EventLeaveRequested, events.LeaveLifecycleTopic,
			events.LeaveEvent{LeaveID: "leave-1", Days: 2})

		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, kafka.OutboxStatusPending, e.Status)
		assert.Contains(t, string(e.Payload), `"leave_id":"leave-1"`)
	})

	t.Run("negative missing topic", func(t *testing.T) {
		_, err := kafka.NewOutboxEvent("", "leave", "leave-1", events.EventLeaveRequested, "", struct{}{})
		assert.Error(t, err)
	})
}

func TestOutboxRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create uses bound transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event, err := kafka.NewOutboxEvent("req-1", "employee", "emp-1", events.EventEmployeeCreated, events.EmployeeCreatedTopic,
			events.EmployeeCreatedEvent{EmployeeID: "emp-1"})
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(event.ID, "req-1", "employee", "emp-1", events.EventEmployeeCreated, events.EmployeeCreatedTopic, event.Payload, kafka.OutboxStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, kafka.NewOutboxRepository(db).WithTx(tx).Create(ctx, event))
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative create rejects invalid event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		err = kafka.NewOutboxRepository(db).Create(ctx, kafka.OutboxEvent{ID: "x", Topic: "t", Payload: []byte("{}"), Status: "bogus"})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list pending skips exhausted rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "request_id", "aggregate_type", "aggregate_id", "event_type", "topic", "payload", "status", "retry_count", "next_retry_at"}).
			AddRow("o-1", "req-1", "leave", "leave-1", events.EventLeaveApproved, events.LeaveLifecycleTopic, []byte(`{}`), kafka.OutboxStatusFailed, 2, now)
		mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_events")).
			WithArgs(kafka.OutboxStatusPending, kafka.OutboxStatusFailed, kafka.OutboxMaxRetries, 10).
			WillReturnRows(rows)

		got, err := kafka.NewOutboxRepository(db).ListPending(ctx, 10)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "o-1", got[0].ID)
		assert.Equal(t, 2, got[0].RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mark sent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
			WithArgs("o-1", kafka.OutboxStatusSent).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, kafka.NewOutboxRepository(db).MarkSent(ctx, "o-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative mark failed unknown id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
			WithArgs("missing", kafka.OutboxStatusFailed, "boom").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = kafka.NewOutboxRepository(db).MarkFailed(ctx, "missing", "boom")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
