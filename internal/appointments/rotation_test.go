package appointments

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func newRotatorWithMock(t *testing.T) (*Rotator, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewRotator(newFakeCatalog(), NewStore(mock), nil), mock
}

func TestRotatorPreferenceWinsWithoutAdvancing(t *testing.T) {
	rot, mock := newRotatorWithMock(t)

	// No rotation_state query expected: the cursor must not move.
	name, ok, err := rot.Next(context.Background(), "brianna")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok || name != "Brianna" {
		t.Fatalf("Next = (%q, %v), want Brianna", name, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRotatorAdvancesWhenNoPreference(t *testing.T) {
	rot, mock := newRotatorWithMock(t)
	mock.ExpectQuery("UPDATE rotation_state SET cursor").
		WithArgs(3, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"cursor"}).AddRow(2))

	name, ok, err := rot.Next(context.Background(), "")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok || name != "Brianna" { // index (2-1+3)%3 = 1
		t.Fatalf("Next = (%q, %v), want Brianna", name, ok)
	}
}

func TestRotatorInactivePreferenceFallsBackToRotation(t *testing.T) {
	rot, mock := newRotatorWithMock(t)
	mock.ExpectQuery("UPDATE rotation_state SET cursor").
		WithArgs(3, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"cursor"}).AddRow(1))

	name, ok, err := rot.Next(context.Background(), "Zoe")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok || name != "Alexis" { // index (1-1+3)%3 = 0
		t.Fatalf("Next = (%q, %v), want Alexis", name, ok)
	}
}
