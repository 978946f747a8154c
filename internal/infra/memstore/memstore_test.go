package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/infra/memstore"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

func TestStore_InsertAssignsIDAndKeepsOrder(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	a, err := s.Insert(ctx, domain.TableLeads, port.Record{"company": "A"})
	require.NoError(t, err)
	b, err := s.Insert(ctx, domain.TableLeads, port.Record{"company": "B"})
	require.NoError(t, err)

	assert.NotEmpty(t, a["id"])
	assert.NotEmpty(t, a["created_at"])
	assert.NotEqual(t, a["id"], b["id"])

	rows, err := s.SelectAll(ctx, domain.TableLeads)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0]["company"])
	assert.Equal(t, "B", rows[1]["company"])
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.Seed(domain.TableDemands, port.Record{"id": "d1", "status": "Pending", "title": "Post"})

	row, err := s.Update(ctx, domain.TableDemands, "d1", port.Record{"status": "Done"})
	require.NoError(t, err)
	assert.Equal(t, "Done", row["status"])
	assert.Equal(t, "Post", row["title"])

	_, err = s.Update(ctx, domain.TableDemands, "missing", port.Record{"status": "Done"})
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)

	require.NoError(t, s.Delete(ctx, domain.TableDemands, "d1"))
	_, ok := s.Get(domain.TableDemands, "d1")
	assert.False(t, ok)
}

func TestStore_HookFailsWithoutWriting(t *testing.T) {
	s := memstore.New()
	s.Seed(domain.TableTransactions, port.Record{"id": "t1", "status": "Pending"})
	boom := errors.New("network down")
	s.SetHook(func(ctx context.Context, op memstore.Op, table, id string) error {
		if op == memstore.OpUpdate {
			return boom
		}
		return nil
	})

	_, err := s.Update(context.Background(), domain.TableTransactions, "t1", port.Record{"status": "Paid"})
	assert.ErrorIs(t, err, boom)

	row, _ := s.Get(domain.TableTransactions, "t1")
	assert.Equal(t, "Pending", row["status"])
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := memstore.New()
	s.Seed(domain.TableClients, port.Record{"id": "c1", "services": []any{"Google"}})

	rows, _ := s.SelectAll(context.Background(), domain.TableClients)
	rows[0]["services"].([]any)[0] = "Vídeo"

	row, _ := s.Get(domain.TableClients, "c1")
	assert.Equal(t, []any{"Google"}, row["services"])
}
