// Package tui is the terminal front end: sign-in screens, product search and
// barcode scan, and the grocery list with its add and edit form.
package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
	"github.com/dukerupert/smartgrocery/internal/scanner"
)

// Auth is the identity backend the sign-in screens drive.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	VerifyEmail(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (*auth.SignInResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Authenticate(ctx context.Context, token string) (auth.AuthContext, error)
	SignOut(ctx context.Context, sessionID int64) error
}

// Groceries is the grocery backend the home and list screens drive.
type Groceries interface {
	Items(ctx context.Context, userID int64) ([]model.GroceryItem, error)
	Add(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error)
	Update(ctx context.Context, item model.GroceryItem) (*model.GroceryItem, error)
	Delete(ctx context.Context, userID, id int64) error
	SearchAsync(ctx context.Context, input string, onResult func(grocery.SearchResult, error))
}

type screen int

const (
	screenLogin screen = iota
	screenSignUp
	screenVerify
	screenForgot
	screenReset
	screenHome
	screenList
	screenItemForm
)

const (
	msgLoginOK     = "Login Successful"
	msgSignUpOK    = "Sign up successful! Please verify your email before logging in."
	msgVerifyOK    = "Email verified. You can now log in."
	msgResetSent   = "Password reset email sent"
	msgResetOK     = "Password updated. Please log in."
	msgSignedOut   = "Signed out"
	msgPasswordMis = "Passwords do not match"
)

type (
	signedInMsg      struct{ result *auth.SignInResult }
	signedUpMsg      struct{ email string }
	verifiedMsg      struct{ email string }
	resetSentMsg     struct{ email string }
	passwordResetMsg struct{ email string }
	signedOutMsg     struct{}
	itemsMsg         struct{ items []model.GroceryItem }
	itemSavedMsg     struct{ item *model.GroceryItem }
	itemDeletedMsg   struct{ id int64 }
	searchMsg        struct{ result grocery.SearchResult }
	scanMsg          struct{ barcode string }
	errMsg           struct{ err error }
)

// Model is the root Bubble Tea model. Each screen keeps its own state so
// navigating back restores what was typed.
type Model struct {
	ctx       context.Context
	auth      Auth
	groceries Groceries
	decoder   scanner.Decoder
	logger    *slog.Logger

	screen  screen
	session *auth.SignInResult
	status  string
	err     string
	busy    bool

	login  form
	signup form
	verify form
	forgot form
	reset  form

	search   textinput.Model
	scanPath textinput.Model
	scanMode bool
	result   grocery.SearchResult

	items     []model.GroceryItem
	list      list.Model
	sortIdx   int
	filterIdx int
	deleting  *model.GroceryItem

	itemForm form
	editing  *model.GroceryItem
	formBack screen

	width, height int
}

func New(ctx context.Context, a Auth, g Groceries, decoder scanner.Decoder, logger *slog.Logger) Model {
	m := Model{
		ctx:       ctx,
		auth:      a,
		groceries: g,
		decoder:   decoder,
		logger:    logger,
		screen:    screenLogin,
		login:     newLoginForm(),
		signup:    newSignUpForm(),
		verify:    newVerifyForm(),
		forgot:    newForgotForm(),
		reset:     newResetForm(),
		search:    newSearchInput(),
		scanPath:  newScanPathInput(),
		list:      newItemList(),
		width:     80,
		height:    24,
	}
	return m
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) userID() int64 {
	if m.session == nil || m.session.User == nil {
		return 0
	}
	return m.session.User.ID
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case errMsg:
		m.busy = false
		m.status = ""
		m.err = msg.err.Error()
		m.logger.Debug("action failed", "screen", m.screen, "error", msg.err)
		return m, nil
	}

	switch m.screen {
	case screenLogin, screenSignUp, screenVerify, screenForgot, screenReset:
		return m.updateAuth(msg)
	case screenHome:
		return m.updateHome(msg)
	case screenList:
		return m.updateList(msg)
	case screenItemForm:
		return m.updateItemForm(msg)
	}
	return m, nil
}

// goTo switches screens and clears transient messages unless keep is set.
func (m *Model) goTo(s screen, keep bool) {
	m.screen = s
	m.busy = false
	if !keep {
		m.status = ""
		m.err = ""
	}
}

func (m Model) View() string {
	var body, help string
	switch m.screen {
	case screenLogin:
		body, help = m.login.view(), "enter sign in • ctrl+n sign up • ctrl+f forgot password • ctrl+v enter code • ctrl+c quit"
	case screenSignUp:
		body, help = m.signup.view(), "enter sign up • esc back to login"
	case screenVerify:
		body, help = m.verify.view(), "enter verify • esc back to login"
	case screenForgot:
		body, help = m.forgot.view(), "enter send code • esc back to login"
	case screenReset:
		body, help = m.reset.view(), "enter reset password • esc back to login"
	case screenHome:
		body, help = m.homeView(), "enter search • tab switch to "+m.otherHomeInput()+" • ctrl+a add result • ctrl+n new item • ctrl+l list • ctrl+x sign out"
	case screenList:
		body, help = m.listView(), "a add • e edit • d delete • s sort • c category • esc home"
	case screenItemForm:
		body, help = m.itemForm.view(), "enter next/save • ctrl+s save • esc cancel"
	}

	footer := ""
	switch {
	case m.busy:
		footer = accentStyle.Render("Working...")
	case m.err != "":
		footer = errorStyle.Render("✖ " + m.err)
	case m.status != "":
		footer = successStyle.Render("✔ " + m.status)
	}
	if footer != "" {
		body += "\n" + footer
	}
	return panel(body) + "\n" + helpStyle.Render(help)
}

// run wraps a backend call as a tea.Cmd, converting errors into errMsg.
func run(fn func() (tea.Msg, error)) tea.Cmd {
	return func() tea.Msg {
		msg, err := fn()
		if err != nil {
			return errMsg{err}
		}
		return msg
	}
}
