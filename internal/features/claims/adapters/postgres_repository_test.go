package adapters

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	"tracking-sentinel/internal/features/claims/domain"
)

func newMockRepository(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestExists(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM claims WHERE tracking_number").
		WithArgs("794611111111", anomalies.RuleTransitTooLong).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "794611111111", anomalies.RuleTransitTooLong)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultsToOpen(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("INSERT INTO claims").
		WithArgs("794611111111", (*int64)(nil), (*int64)(nil),
			anomalies.ClaimEntregaTardia, anomalies.RuleTransitTooLong,
			"Paquete en tránsito por 8 días hábiles (umbral: 7). Enviado: 2024-03-06",
			domain.StatusOpen).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := repo.Create(context.Background(), domain.Claim{
		TrackingNumber: "794611111111",
		ClaimType:      anomalies.ClaimEntregaTardia,
		Rule:           anomalies.RuleTransitTooLong,
		Description:    "Paquete en tránsito por 8 días hábiles (umbral: 7). Enviado: 2024-03-06",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountOpen(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM claims WHERE status").
		WithArgs(domain.StatusOpen).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	count, err := repo.CountOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
