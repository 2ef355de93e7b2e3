package grocery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/smartgrocery/internal/database"
	"github.com/dukerupert/smartgrocery/internal/model"
	"github.com/dukerupert/smartgrocery/internal/store"
)

type fakeLookup struct {
	product    *model.ProductResponse
	productErr error
	search     *model.SearchResponse
	searchErr  error

	mu       sync.Mutex
	barcodes []string
	names    []string
}

func (f *fakeLookup) GetProductByBarcode(ctx context.Context, barcode string) (*model.ProductResponse, error) {
	f.mu.Lock()
	f.barcodes = append(f.barcodes, barcode)
	f.mu.Unlock()
	return f.product, f.productErr
}

func (f *fakeLookup) SearchProductByName(ctx context.Context, name string) (*model.SearchResponse, error) {
	f.mu.Lock()
	f.names = append(f.names, name)
	f.mu.Unlock()
	return f.search, f.searchErr
}

func ptr[T any](v T) *T { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupService(t *testing.T, lookup *fakeLookup, opts ...Option) (*Service, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).Create(context.Background(), "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if lookup == nil {
		lookup = &fakeLookup{}
	}
	return NewService(store.NewGroceryStore(db), lookup, testLogger(), opts...), u.ID
}

func TestAddThenListContainsItemOnce(t *testing.T) {
	svc, userID := setupService(t, nil)
	ctx := context.Background()

	in := model.GroceryItem{
		UserID:         userID,
		Name:           "Greek yogurt",
		Description:    "plain",
		Quantity:       3,
		Barcode:        "123",
		Brand:          "Fage",
		Category:       "Dairy",
		ExpirationDate: "2026-10-30",
	}
	created, err := svc.Add(ctx, in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := svc.Items(ctx, userID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	count := 0
	for _, item := range items {
		if item.ID == created.ID {
			count++
			in.ID, in.CreatedAt = item.ID, item.CreatedAt
			if item != in {
				t.Errorf("listed = %+v, want %+v", item, in)
			}
		}
	}
	if count != 1 {
		t.Errorf("item appears %d times, want 1", count)
	}
}

func TestAddAppliesDefaults(t *testing.T) {
	svc, userID := setupService(t, nil)

	item, err := svc.Add(context.Background(), model.GroceryItem{UserID: userID, Name: "  bananas  "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Name != "bananas" {
		t.Errorf("name = %q, want trimmed", item.Name)
	}
	if item.Category != CategoryFruits {
		t.Errorf("category = %q, want %q", item.Category, CategoryFruits)
	}
	if item.Description != model.DefaultDescription {
		t.Errorf("description = %q", item.Description)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
}

func TestAddValidation(t *testing.T) {
	svc, userID := setupService(t, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, model.GroceryItem{UserID: userID, Name: "   "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name err = %v, want ErrNameRequired", err)
	}
	if _, err := svc.Add(ctx, model.GroceryItem{UserID: userID, Name: "Milk", ExpirationDate: "tomorrow"}); !errors.Is(err, ErrInvalidExpiration) {
		t.Errorf("bad date err = %v, want ErrInvalidExpiration", err)
	}

	items, _ := svc.Items(ctx, userID)
	if len(items) != 0 {
		t.Errorf("invalid input stored %d items", len(items))
	}
}

func TestDeleteRemovesOnlyThatItem(t *testing.T) {
	svc, userID := setupService(t, nil)
	ctx := context.Background()

	a, _ := svc.Add(ctx, model.GroceryItem{UserID: userID, Name: "Apples"})
	b, _ := svc.Add(ctx, model.GroceryItem{UserID: userID, Name: "Bread"})

	if err := svc.Delete(ctx, userID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	items, _ := svc.Items(ctx, userID)
	if len(items) != 1 || items[0].ID != b.ID {
		t.Errorf("items = %+v, want only %d", items, b.ID)
	}

	if err := svc.Delete(ctx, userID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	svc, userID := setupService(t, nil)

	_, err := svc.Update(context.Background(), model.GroceryItem{ID: 42, UserID: userID, Name: "Milk"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChangeFuncCalled(t *testing.T) {
	var actions []string
	svc, userID := setupService(t, nil, WithChangeFunc(func(uid int64, action string, item model.GroceryItem) {
		actions = append(actions, action)
	}))
	ctx := context.Background()

	item, _ := svc.Add(ctx, model.GroceryItem{UserID: userID, Name: "Milk"})
	item.Quantity = 2
	svc.Update(ctx, *item)
	replaced, err := svc.Add(ctx, model.GroceryItem{ID: item.ID, UserID: userID, Name: "Oat milk"})
	if err != nil || replaced.ID != item.ID {
		t.Fatalf("replace = %+v, %v", replaced, err)
	}
	svc.Delete(ctx, userID, item.ID)

	want := []string{"created", "updated", "updated", "deleted"}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("actions[%d] = %q, want %q", i, actions[i], want[i])
		}
	}
}

func receive(t *testing.T, ch <-chan []model.GroceryItem) []model.GroceryItem {
	t.Helper()
	select {
	case items, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return items
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for list")
		return nil
	}
}

func TestSubscribeReceivesRefreshedList(t *testing.T) {
	svc, userID := setupService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Subscribe(ctx, userID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if initial := receive(t, ch); len(initial) != 0 {
		t.Fatalf("initial list = %v, want empty", initial)
	}

	svc.Add(context.Background(), model.GroceryItem{UserID: userID, Name: "Milk"})
	if got := receive(t, ch); len(got) != 1 || got[0].Name != "Milk" {
		t.Errorf("after add = %+v", got)
	}

	// Two writes without reading: only the latest list is kept.
	svc.Add(context.Background(), model.GroceryItem{UserID: userID, Name: "Bread"})
	svc.Add(context.Background(), model.GroceryItem{UserID: userID, Name: "Eggs"})
	if got := receive(t, ch); len(got) != 3 || got[0].Name != "Eggs" {
		t.Errorf("latest list = %+v", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

// stallStore holds up the ListAll call numbered stallAt after reading its
// rows, until release is closed.
type stallStore struct {
	ItemStore
	stallAt  int
	stalled  chan struct{}
	release  chan struct{}
	inserted chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *stallStore) Insert(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	saved, err := s.ItemStore.Insert(ctx, item)
	s.inserted <- struct{}{}
	return saved, err
}

func (s *stallStore) ListAll(ctx context.Context, userID int64) ([]model.GroceryItem, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	items, err := s.ItemStore.ListAll(ctx, userID)
	if n == s.stallAt {
		close(s.stalled)
		<-s.release
	}
	return items, err
}

func TestSubscriberNotLeftOnStaleList(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	u, err := store.NewUserStore(db).Create(context.Background(), "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	items := &stallStore{
		ItemStore: store.NewGroceryStore(db),
		stallAt:   2,
		stalled:   make(chan struct{}),
		release:   make(chan struct{}),
		inserted:  make(chan struct{}, 2),
	}
	svc := NewService(items, &fakeLookup{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := svc.Subscribe(ctx, u.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	receive(t, ch)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.Add(context.Background(), model.GroceryItem{UserID: u.ID, Name: "Milk"})
	}()
	<-items.inserted
	select {
	case <-items.stalled:
	case <-time.After(time.Second):
		t.Fatal("first refresh never started")
	}

	go func() {
		defer wg.Done()
		svc.Add(context.Background(), model.GroceryItem{UserID: u.ID, Name: "Bread"})
	}()
	<-items.inserted
	close(items.release)
	wg.Wait()

	var latest []model.GroceryItem
	for done := false; !done; {
		select {
		case got := <-ch:
			latest = got
		default:
			done = true
		}
	}
	if len(latest) != 2 {
		t.Errorf("subscriber's latest list = %+v, want both items", latest)
	}
}

func TestFetchProductFailureIsAbsent(t *testing.T) {
	lookup := &fakeLookup{productErr: errors.New("status 500")}
	svc, _ := setupService(t, lookup)

	if resp := svc.FetchProduct(context.Background(), "123"); resp != nil {
		t.Errorf("resp = %+v, want nil", resp)
	}
}

func TestFetchProductAsync(t *testing.T) {
	lookup := &fakeLookup{product: &model.ProductResponse{Code: "123", Status: 1, Product: &model.Product{ProductName: ptr("Nutella")}}}
	svc, _ := setupService(t, lookup)

	done := make(chan *model.ProductResponse, 1)
	svc.FetchProductAsync(context.Background(), "123", func(resp *model.ProductResponse) {
		done <- resp
	})

	select {
	case resp := <-done:
		if !resp.Found() || resp.Product.Name() != "Nutella" {
			t.Errorf("resp = %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSearchProductByNameAsyncFailure(t *testing.T) {
	lookup := &fakeLookup{searchErr: errors.New("offline")}
	svc, _ := setupService(t, lookup)

	done := make(chan *model.SearchResponse, 1)
	svc.SearchProductByNameAsync(context.Background(), "milk", func(resp *model.SearchResponse) {
		done <- resp
	})

	select {
	case resp := <-done:
		if resp != nil {
			t.Errorf("resp = %+v, want nil", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}
