package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

func seedListing(t *testing.T, mem *store.Memory) *models.Listing {
	t.Helper()
	l := &models.Listing{ID: uuid.New(), AgentID: uuid.New(), SellerID: uuid.New(), IsActive: true, CreatedAt: time.Now()}
	if err := mem.Listings().Create(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRecordPurchase_IdempotentByEvent(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(mem.Purchases())
	l := seedListing(t, mem)
	user := uuid.New()

	p := func() *models.Purchase {
		return &models.Purchase{EventID: "evt_1", UserID: user, AgentID: l.AgentID, ListingID: l.ID, Amount: decimal.RequireFromString("4.99"), Currency: "USD"}
	}
	ok, err := svc.RecordPurchase(context.Background(), p())
	if err != nil || !ok {
		t.Fatalf("first record: ok=%v err=%v", ok, err)
	}
	ok, err = svc.RecordPurchase(context.Background(), p())
	if err != nil || ok {
		t.Fatalf("replay should be a no-op: ok=%v err=%v", ok, err)
	}

	got, _ := mem.Listings().GetByID(context.Background(), l.ID)
	if got.Purchases != 1 || !got.Revenue.Equal(decimal.RequireFromString("4.99")) {
		t.Errorf("unexpected listing stats purchases=%d revenue=%s", got.Purchases, got.Revenue)
	}
	has, _ := svc.HasPurchased(context.Background(), user, l.AgentID)
	if !has {
		t.Error("expected purchase to grant access")
	}
	list, _ := svc.ListByUser(context.Background(), user)
	if len(list) != 1 || list[0].ID == uuid.Nil || list[0].CreatedAt.IsZero() {
		t.Errorf("unexpected purchases %+v", list)
	}
}

func TestRecordPurchase_Validation(t *testing.T) {
	svc := NewService(store.NewMemory().Purchases())
	tests := map[string]*models.Purchase{
		"no event":        {UserID: uuid.New(), AgentID: uuid.New(), ListingID: uuid.New()},
		"no user":         {EventID: "e", AgentID: uuid.New(), ListingID: uuid.New()},
		"negative amount": {EventID: "e", UserID: uuid.New(), AgentID: uuid.New(), ListingID: uuid.New(), Amount: decimal.NewFromInt(-1)},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.RecordPurchase(context.Background(), p); !errors.Is(err, ErrInvalidPurchase) {
				t.Errorf("expected invalid purchase, got %v", err)
			}
		})
	}
}

func TestRecordPurchase_UnknownListing(t *testing.T) {
	svc := NewService(store.NewMemory().Purchases())
	_, err := svc.RecordPurchase(context.Background(), &models.Purchase{EventID: "e", UserID: uuid.New(), AgentID: uuid.New(), ListingID: uuid.New()})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
