// Package grocery coordinates the persisted grocery list with remote product
// lookups for the presentation layers.
package grocery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/smartgrocery/internal/model"
)

var (
	ErrNameRequired      = errors.New("name is required")
	ErrInvalidExpiration = errors.New("expiration date must be YYYY-MM-DD")
	ErrNotFound          = errors.New("item not found")
)

const expirationLayout = "2006-01-02"

// ItemStore is the persistence the service writes through.
type ItemStore interface {
	Insert(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error)
	Update(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
	ListAll(ctx context.Context, userID int64) ([]model.GroceryItem, error)
	GetByID(ctx context.Context, userID, id int64) (*model.GroceryItem, error)
}

// ProductLookup is the remote product database.
type ProductLookup interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*model.ProductResponse, error)
	SearchProductByName(ctx context.Context, name string) (*model.SearchResponse, error)
}

// ChangeFunc is called after a successful write with the action
// ("created", "updated", "deleted") and the affected item.
type ChangeFunc func(userID int64, action string, item model.GroceryItem)

type Service struct {
	items    ItemStore
	products ProductLookup
	onChange ChangeFunc
	logger   *slog.Logger

	mu      sync.Mutex
	subs    map[int64]map[*subscriber]struct{}
	refresh map[int64]*sync.Mutex
}

type subscriber struct {
	ch chan []model.GroceryItem
}

type Option func(*Service)

func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

func NewService(items ItemStore, products ProductLookup, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		items:    items,
		products: products,
		logger:   logger,
		subs:     make(map[int64]map[*subscriber]struct{}),
		refresh:  make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(item *model.GroceryItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return ErrNameRequired
	}
	item.Category = strings.TrimSpace(item.Category)
	if item.Category == "" {
		item.Category = Categorize(item.Name)
	}
	item.ExpirationDate = strings.TrimSpace(item.ExpirationDate)
	if item.ExpirationDate != "" {
		if _, err := time.Parse(expirationLayout, item.ExpirationDate); err != nil {
			return ErrInvalidExpiration
		}
	}
	item.ApplyDefaults()
	return nil
}

// Add inserts item, or replaces it when item.ID names an existing item of the
// same user.
func (s *Service) Add(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	if err := normalize(&item); err != nil {
		return nil, err
	}
	action := "created"
	if item.ID != 0 {
		existing, err := s.items.GetByID(ctx, item.UserID, item.ID)
		if err != nil {
			return nil, fmt.Errorf("add item: %w", err)
		}
		if existing != nil {
			action = "updated"
		}
	}
	saved, err := s.items.Insert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	if saved == nil {
		return nil, ErrNotFound
	}
	s.changed(ctx, saved.UserID, action, *saved)
	return saved, nil
}

func (s *Service) Update(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	if err := normalize(&item); err != nil {
		return nil, err
	}
	updated, err := s.items.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.changed(ctx, updated.UserID, "updated", *updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	removed, err := s.items.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	s.changed(ctx, userID, "deleted", model.GroceryItem{ID: id, UserID: userID})
	return nil
}

// Items returns the user's list, newest first. Never nil.
func (s *Service) Items(ctx context.Context, userID int64) ([]model.GroceryItem, error) {
	items, err := s.items.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []model.GroceryItem{}
	}
	return items, nil
}

func (s *Service) Item(ctx context.Context, userID, id int64) (*model.GroceryItem, error) {
	item, err := s.items.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Subscribe returns a channel that receives the user's current list and then
// every list refreshed after a write. A slow reader only sees the latest
// list. The channel is closed when ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID int64) (<-chan []model.GroceryItem, error) {
	refresh := s.refreshLock(userID)
	refresh.Lock()
	defer refresh.Unlock()

	items, err := s.Items(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan []model.GroceryItem, 1)}
	sub.ch <- items

	s.mu.Lock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[*subscriber]struct{})
	}
	s.subs[userID][sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[userID], sub)
		if len(s.subs[userID]) == 0 {
			delete(s.subs, userID)
		}
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

func (s *Service) changed(ctx context.Context, userID int64, action string, item model.GroceryItem) {
	if s.onChange != nil {
		s.onChange(userID, action, item)
	}

	// Reads and publishes for one user run one at a time, so the last list
	// published was read after the last write.
	refresh := s.refreshLock(userID)
	refresh.Lock()
	defer refresh.Unlock()

	s.mu.Lock()
	n := len(s.subs[userID])
	s.mu.Unlock()
	if n == 0 {
		return
	}

	items, err := s.Items(context.WithoutCancel(ctx), userID)
	if err != nil {
		s.logger.Error("refresh subscribers", "user_id", userID, "error", err)
		return
	}
	s.publish(userID, items)
}

func (s *Service) refreshLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.refresh[userID]
	if !ok {
		l = &sync.Mutex{}
		s.refresh[userID] = l
	}
	return l
}

func (s *Service) publish(userID int64, items []model.GroceryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[userID] {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- items
	}
}

// FetchProduct looks up a product by barcode. Transport failures and
// non-success responses are logged and reported as nil.
func (s *Service) FetchProduct(ctx context.Context, barcode string) *model.ProductResponse {
	resp, err := s.products.GetProductByBarcode(ctx, barcode)
	if err != nil {
		s.logger.Warn("product lookup failed", "barcode", barcode, "error", err)
		return nil
	}
	return resp
}

// SearchProductByName runs a name search. Failures are logged and reported
// as nil.
func (s *Service) SearchProductByName(ctx context.Context, name string) *model.SearchResponse {
	resp, err := s.products.SearchProductByName(ctx, name)
	if err != nil {
		s.logger.Warn("product search failed", "name", name, "error", err)
		return nil
	}
	return resp
}

// FetchProductAsync runs FetchProduct on a new goroutine and passes the
// result to onResult.
func (s *Service) FetchProductAsync(ctx context.Context, barcode string, onResult func(*model.ProductResponse)) {
	go func() {
		onResult(s.FetchProduct(ctx, barcode))
	}()
}

// SearchProductByNameAsync runs SearchProductByName on a new goroutine and
// passes the result to onResult.
func (s *Service) SearchProductByNameAsync(ctx context.Context, name string, onResult func(*model.SearchResponse)) {
	go func() {
		onResult(s.SearchProductByName(ctx, name))
	}()
}
