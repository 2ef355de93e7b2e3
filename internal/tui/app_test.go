package tui

import (
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
)

type fakeAuth struct {
	signInErr error
	signUps   []string
	verified  []string
	resets    []string
	signedOut []int64
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	f.signUps = append(f.signUps, email)
	return &model.User{ID: 1, Email: email}, nil
}

func (f *fakeAuth) VerifyEmail(ctx context.Context, email, code string) error {
	if code != "123456" {
		return auth.ErrInvalidCode
	}
	f.verified = append(f.verified, email)
	return nil
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*auth.SignInResult, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.SignInResult{Token: "tok", User: &model.User{ID: 7, Email: email}}, nil
}

func (f *fakeAuth) RequestPasswordReset(ctx context.Context, email string) error {
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeAuth) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return nil
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (auth.AuthContext, error) {
	return auth.AuthContext{UserID: 7, SessionID: 42}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, sessionID int64) error {
	f.signedOut = append(f.signedOut, sessionID)
	return nil
}

type fakeGroceries struct {
	items    []model.GroceryItem
	added    []model.GroceryItem
	updated  []model.GroceryItem
	deleted  []int64
	searched []string
	result   grocery.SearchResult
}

func (f *fakeGroceries) Items(ctx context.Context, userID int64) ([]model.GroceryItem, error) {
	return f.items, nil
}

func (f *fakeGroceries) Add(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	f.added = append(f.added, item)
	item.ID = int64(len(f.added))
	return &item, nil
}

func (f *fakeGroceries) Update(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error) {
	f.updated = append(f.updated, item)
	return &item, nil
}

func (f *fakeGroceries) Delete(ctx context.Context, userID, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGroceries) SearchAsync(ctx context.Context, input string, onResult func(grocery.SearchResult, error)) {
	f.searched = append(f.searched, input)
	if input == "" {
		onResult(grocery.SearchResult{}, grocery.ErrEmptyQuery)
		return
	}
	onResult(f.result, nil)
}

type stubDecoder struct {
	value string
}

func (d stubDecoder) Decode(img image.Image) (string, error) {
	return d.value, nil
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		next, c := m.Update(msg)
		m, cmd = next.(Model), c
	}
	return m, cmd
}

func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case signedInMsg, signedUpMsg, verifiedMsg, resetSentMsg, passwordResetMsg, signedOutMsg,
		itemsMsg, itemSavedMsg, itemDeletedMsg, searchMsg, scanMsg, errMsg:
		return true
	}
	return false
}

// settle runs cmd and feeds backend results back into the model until no
// further backend work is pending.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 5; i++ {
		msg := cmd()
		if !isAppMsg(msg) {
			break
		}
		m, cmd = send(m, msg)
	}
	if m.busy {
		t.Fatal("model still busy after settling")
	}
	return m
}

func setupModel(t *testing.T) (Model, *fakeAuth, *fakeGroceries) {
	t.Helper()
	a := &fakeAuth{}
	g := &fakeGroceries{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(context.Background(), a, g, stubDecoder{value: "3017620422003"}, logger), a, g
}

func signedIn(t *testing.T) (Model, *fakeAuth, *fakeGroceries) {
	t.Helper()
	m, a, g := setupModel(t)
	m, cmd := send(m, runes("alice@example.com"), keyMsg(tea.KeyTab), runes("secret123"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenHome {
		t.Fatalf("screen = %v, want home", m.screen)
	}
	return m, a, g
}

func TestLoginNavigation(t *testing.T) {
	m, _, _ := setupModel(t)

	m, _ = send(m, keyMsg(tea.KeyCtrlN))
	if m.screen != screenSignUp {
		t.Fatalf("screen = %v, want signup", m.screen)
	}
	m, _ = send(m, keyMsg(tea.KeyEsc))
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}

	m, _ = send(m, runes("alice@example.com"), keyMsg(tea.KeyCtrlF))
	if m.screen != screenForgot {
		t.Fatalf("screen = %v, want forgot", m.screen)
	}
	if got := m.forgot.value(0); got != "alice@example.com" {
		t.Errorf("forgot email = %q, want prefilled", got)
	}
}

func TestSignInSuccess(t *testing.T) {
	m, _, _ := signedIn(t)
	if m.status != msgLoginOK {
		t.Errorf("status = %q", m.status)
	}
	if m.userID() != 7 {
		t.Errorf("user id = %d, want 7", m.userID())
	}
	if !strings.Contains(m.View(), "alice@example.com") {
		t.Error("home view should show the signed-in email")
	}
}

func TestSignInErrorShown(t *testing.T) {
	m, a, _ := setupModel(t)
	a.signInErr = auth.ErrEmailNotVerified

	m, cmd := send(m, runes("alice@example.com"), keyMsg(tea.KeyTab), runes("secret123"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenLogin {
		t.Errorf("screen = %v, want login", m.screen)
	}
	if m.err != auth.ErrEmailNotVerified.Error() {
		t.Errorf("err = %q", m.err)
	}
}

func TestSignUpPasswordMismatch(t *testing.T) {
	m, a, _ := setupModel(t)
	m, _ = send(m, keyMsg(tea.KeyCtrlN))

	m, cmd := send(m,
		runes("alice@example.com"), keyMsg(tea.KeyTab),
		runes("secret123"), keyMsg(tea.KeyTab),
		runes("secret124"), keyMsg(tea.KeyEnter))
	if cmd != nil {
		t.Error("mismatched passwords should not submit")
	}
	if m.err != msgPasswordMis {
		t.Errorf("err = %q, want %q", m.err, msgPasswordMis)
	}
	if len(a.signUps) != 0 {
		t.Errorf("sign ups = %v, want none", a.signUps)
	}
}

func TestSignUpVerifyLogin(t *testing.T) {
	m, a, _ := setupModel(t)
	m, _ = send(m, keyMsg(tea.KeyCtrlN))

	m, cmd := send(m,
		runes("alice@example.com"), keyMsg(tea.KeyTab),
		runes("secret123"), keyMsg(tea.KeyTab),
		runes("secret123"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenVerify || m.status != msgSignUpOK {
		t.Fatalf("screen = %v status = %q", m.screen, m.status)
	}
	if got := m.verify.value(0); got != "alice@example.com" {
		t.Errorf("verify email = %q", got)
	}

	m, cmd = send(m, runes("000000"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.err != auth.ErrInvalidCode.Error() {
		t.Fatalf("err = %q, want invalid code", m.err)
	}

	m.verify.set(1, "123456")
	m, cmd = send(m, keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenLogin || m.status != msgVerifyOK {
		t.Fatalf("screen = %v status = %q", m.screen, m.status)
	}
	if got := m.login.value(0); got != "alice@example.com" {
		t.Errorf("login email = %q, want prefilled", got)
	}
	if len(a.verified) != 1 {
		t.Errorf("verified = %v", a.verified)
	}
}

func TestForgotPasswordFlow(t *testing.T) {
	m, a, _ := setupModel(t)
	m, cmd := send(m, keyMsg(tea.KeyCtrlF), runes("alice@example.com"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenReset || m.status != msgResetSent {
		t.Fatalf("screen = %v status = %q", m.screen, m.status)
	}
	if len(a.resets) != 1 || a.resets[0] != "alice@example.com" {
		t.Errorf("resets = %v", a.resets)
	}

	m, cmd = send(m, runes("123456"), keyMsg(tea.KeyTab), runes("new-secret"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.screen != screenLogin || m.status != msgResetOK {
		t.Errorf("screen = %v status = %q", m.screen, m.status)
	}
}

func TestHomeSearchShowsMessage(t *testing.T) {
	m, _, g := signedIn(t)
	g.result = grocery.SearchResult{Message: grocery.MsgNoMatchingResult}

	m, cmd := send(m, runes("zzz"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.err != grocery.MsgNoMatchingResult {
		t.Errorf("err = %q", m.err)
	}
	if len(g.searched) != 1 || g.searched[0] != "zzz" {
		t.Errorf("searched = %v", g.searched)
	}
}

func TestHomeSearchShowsProduct(t *testing.T) {
	m, _, g := signedIn(t)
	name, grade := "Nutella", "e"
	g.result = grocery.SearchResult{Product: &model.ProductResponse{
		Code:    "3017620422003",
		Status:  1,
		Product: &model.Product{ProductName: &name, NutritionGrades: &grade},
	}}

	m, cmd := send(m, runes("3017620422003"), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	view := m.View()
	for _, want := range []string{"Product Details", "Name: Nutella", "Nutrition grade: e"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = send(m, keyMsg(tea.KeyCtrlA))
	if m.screen != screenItemForm {
		t.Fatalf("screen = %v, want item form", m.screen)
	}
	if m.itemForm.value(fieldName) != "Nutella" || m.itemForm.value(fieldBarcode) != "3017620422003" {
		t.Errorf("draft = %q / %q", m.itemForm.value(fieldName), m.itemForm.value(fieldBarcode))
	}
}

func TestHomeEmptySearch(t *testing.T) {
	m, _, _ := signedIn(t)
	m, cmd := send(m, keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.err != grocery.ErrEmptyQuery.Error() {
		t.Errorf("err = %q", m.err)
	}
}

func TestScanFileSearchesBarcode(t *testing.T) {
	m, _, g := signedIn(t)

	path := filepath.Join(t.TempDir(), "barcode.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m, _ = send(m, keyMsg(tea.KeyTab))
	if !m.scanMode {
		t.Fatal("tab should focus the scan path")
	}
	m, cmd := send(m, runes(path), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)

	if m.scanMode {
		t.Error("scan mode should end after a detection")
	}
	if len(g.searched) != 1 || g.searched[0] != "3017620422003" {
		t.Errorf("searched = %v", g.searched)
	}
}

func TestScanMissingFile(t *testing.T) {
	m, _, _ := signedIn(t)
	m, _ = send(m, keyMsg(tea.KeyTab))
	m, cmd := send(m, runes(filepath.Join(t.TempDir(), "missing.png")), keyMsg(tea.KeyEnter))
	m = settle(t, m, cmd)
	if m.err == "" {
		t.Error("expected an error for a missing file")
	}
}

func listModel(t *testing.T) (Model, *fakeGroceries) {
	t.Helper()
	m, _, g := signedIn(t)
	g.items = []model.GroceryItem{
		{ID: 1, UserID: 7, Name: "Milk", Category: grocery.CategoryDairy, Quantity: 1, ExpirationDate: "2026-01-05"},
		{ID: 2, UserID: 7, Name: "Apple", Category: grocery.CategoryFruits, Quantity: 3, ExpirationDate: "2026-01-02"},
		{ID: 3, UserID: 7, Name: "Banana", Category: grocery.CategoryFruits, Quantity: 2},
	}
	m, cmd := send(m, keyMsg(tea.KeyCtrlL))
	m = settle(t, m, cmd)
	if m.screen != screenList {
		t.Fatalf("screen = %v, want list", m.screen)
	}
	return m, g
}

func names(items []model.GroceryItem) string {
	var out []string
	for _, it := range items {
		out = append(out, it.Name)
	}
	return strings.Join(out, ",")
}

func TestListSortAndFilterCycle(t *testing.T) {
	m, _ := listModel(t)

	if got := names(m.visible()); got != "Milk,Apple,Banana" {
		t.Errorf("initial = %s", got)
	}

	m, _ = send(m, runes("s"))
	if m.sortKey() != grocery.SortName {
		t.Fatalf("sort = %v, want name", m.sortKey())
	}
	if got := names(m.visible()); got != "Apple,Banana,Milk" {
		t.Errorf("by name = %s", got)
	}

	m, _ = send(m, runes("c"))
	if m.category() != grocery.CategoryFruits {
		t.Fatalf("filter = %q, want Fruits", m.category())
	}
	if got := names(m.visible()); got != "Apple,Banana" {
		t.Errorf("fruits = %s", got)
	}
	if !strings.Contains(m.View(), "Filter: Fruits") {
		t.Error("view should show the active filter")
	}

	for range grocery.SortKeys {
		m, _ = send(m, runes("s"))
	}
	if m.sortKey() != grocery.SortName {
		t.Errorf("sort should wrap around, got %v", m.sortKey())
	}
}

func TestListDeleteConfirm(t *testing.T) {
	m, g := listModel(t)

	m, _ = send(m, runes("d"))
	if m.deleting == nil || m.deleting.Name != "Milk" {
		t.Fatalf("deleting = %+v", m.deleting)
	}
	if !strings.Contains(m.View(), "Are you sure you want to delete 'Milk'?") {
		t.Error("confirm dialog not shown")
	}

	m, _ = send(m, runes("n"))
	if m.deleting != nil || len(g.deleted) != 0 {
		t.Fatal("cancel should not delete")
	}

	m, _ = send(m, runes("d"))
	m, cmd := send(m, runes("y"))
	m = settle(t, m, cmd)
	if len(g.deleted) != 1 || g.deleted[0] != 1 {
		t.Errorf("deleted = %v", g.deleted)
	}
	if got := names(m.visible()); got != "Apple,Banana" {
		t.Errorf("after delete = %s", got)
	}
}

func TestItemFormAdd(t *testing.T) {
	m, g := listModel(t)

	m, _ = send(m, runes("a"))
	if m.screen != screenItemForm || m.editing != nil {
		t.Fatalf("screen = %v editing = %v", m.screen, m.editing)
	}
	m, _ = send(m, runes("Cheese"))
	m.itemForm.set(fieldQuantity, "two")

	m, cmd := send(m, keyMsg(tea.KeyCtrlS))
	if cmd != nil || m.err != errQuantity.Error() {
		t.Fatalf("err = %q, want quantity error", m.err)
	}

	m.itemForm.set(fieldQuantity, "2")
	m, cmd = send(m, keyMsg(tea.KeyCtrlS))
	m = settle(t, m, cmd)

	if len(g.added) != 1 {
		t.Fatalf("added = %v", g.added)
	}
	got := g.added[0]
	if got.Name != "Cheese" || got.Quantity != 2 || got.UserID != 7 {
		t.Errorf("added item = %+v", got)
	}
	if m.screen != screenList || !strings.HasPrefix(m.status, "Item added") {
		t.Errorf("screen = %v status = %q", m.screen, m.status)
	}
}

func TestItemFormEditPrefills(t *testing.T) {
	m, g := listModel(t)

	m, _ = send(m, runes("e"))
	if m.editing == nil || m.editing.ID != 1 {
		t.Fatalf("editing = %+v", m.editing)
	}
	if m.itemForm.value(fieldName) != "Milk" || m.itemForm.value(fieldExpiration) != "2026-01-05" {
		t.Errorf("prefill name = %q exp = %q", m.itemForm.value(fieldName), m.itemForm.value(fieldExpiration))
	}

	m.itemForm.set(fieldCategory, grocery.CategoryOther)
	m, cmd := send(m, keyMsg(tea.KeyCtrlS))
	m = settle(t, m, cmd)
	if len(g.updated) != 1 || g.updated[0].ID != 1 || g.updated[0].Category != grocery.CategoryOther {
		t.Errorf("updated = %+v", g.updated)
	}
}

func TestSignOut(t *testing.T) {
	m, a, _ := signedIn(t)
	m, cmd := send(m, keyMsg(tea.KeyCtrlX))
	m = settle(t, m, cmd)
	if m.screen != screenLogin || m.session != nil {
		t.Errorf("screen = %v session = %v", m.screen, m.session)
	}
	if len(a.signedOut) != 1 || a.signedOut[0] != 42 {
		t.Errorf("signed out = %v", a.signedOut)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want bool
	}{
		{"2026-03-09", true},
		{"2026-03-10", false},
		{"2026-04-01", false},
		{"soon", false},
	}
	for _, tt := range tests {
		if got := expired(tt.date, now); got != tt.want {
			t.Errorf("expired(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestExpiredUsesLocalDay(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	west := time.FixedZone("UTC-8", -8*60*60)

	// Already the 10th locally, still the 9th in UTC.
	if !expired("2026-03-09", time.Date(2026, 3, 10, 0, 30, 0, 0, east)) {
		t.Error("yesterday should be expired just after local midnight")
	}
	// Still the 10th locally, already the 11th in UTC.
	if expired("2026-03-10", time.Date(2026, 3, 10, 23, 30, 0, 0, west)) {
		t.Error("today should not be expired late in the local evening")
	}
}

func TestFormNavigation(t *testing.T) {
	f := newSignUpForm()
	f.move(-1)
	if f.focus != 2 {
		t.Errorf("focus = %d, want wrap to last", f.focus)
	}
	f, _, submit := f.update(keyMsg(tea.KeyEnter))
	if !submit {
		t.Error("enter on the last field should submit")
	}
	f.move(1)
	if _, _, submit := f.update(keyMsg(tea.KeyEnter)); submit {
		t.Error("enter on the first field should advance, not submit")
	}
}
