package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func newLoginForm() form {
	return newForm("SmartGrocery Login",
		field{label: "Email", placeholder: "you@example.com"},
		field{label: "Password", secret: true},
	)
}

func newSignUpForm() form {
	return newForm("Create Account",
		field{label: "Email", placeholder: "you@example.com"},
		field{label: "Password", secret: true},
		field{label: "Confirm Password", secret: true},
	)
}

func newVerifyForm() form {
	return newForm("Verify Email",
		field{label: "Email", placeholder: "you@example.com"},
		field{label: "Code", placeholder: "6-digit code"},
	)
}

func newForgotForm() form {
	return newForm("Forgot Password",
		field{label: "Email Address", placeholder: "you@example.com"},
	)
}

func newResetForm() form {
	return newForm("Reset Password",
		field{label: "Email", placeholder: "you@example.com"},
		field{label: "Code", placeholder: "6-digit code"},
		field{label: "New Password", secret: true},
	)
}

func (m Model) updateAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case signedInMsg:
		m.session = msg.result
		m.login = newLoginForm()
		m.goTo(screenHome, false)
		m.status = msgLoginOK
		m.logger.Info("signed in", "user_id", m.userID())
		return m, nil
	case signedUpMsg:
		m.signup = newSignUpForm()
		m.verify = newVerifyForm()
		m.verify.set(0, msg.email)
		m.verify.move(1)
		m.goTo(screenVerify, false)
		m.status = msgSignUpOK
		return m, nil
	case verifiedMsg:
		m.verify = newVerifyForm()
		m.showLogin(msg.email, msgVerifyOK)
		return m, nil
	case resetSentMsg:
		m.forgot = newForgotForm()
		m.reset = newResetForm()
		m.reset.set(0, msg.email)
		m.reset.move(1)
		m.goTo(screenReset, false)
		m.status = msgResetSent
		return m, nil
	case passwordResetMsg:
		m.reset = newResetForm()
		m.showLogin(msg.email, msgResetOK)
		return m, nil
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			if m.screen == screenLogin {
				return m, tea.Quit
			}
			m.goTo(screenLogin, false)
			return m, nil
		case "ctrl+n":
			if m.screen == screenLogin {
				m.goTo(screenSignUp, false)
				return m, nil
			}
		case "ctrl+f":
			if m.screen == screenLogin {
				m.forgot.set(0, m.login.value(0))
				m.goTo(screenForgot, false)
				return m, nil
			}
		case "ctrl+v":
			if m.screen == screenLogin {
				m.verify.set(0, m.login.value(0))
				m.goTo(screenVerify, false)
				return m, nil
			}
		}
	}

	f := m.authForm()
	f, cmd, submit := f.update(msg)
	m.setAuthForm(f)
	if submit {
		return m.submitAuth()
	}
	return m, cmd
}

func (m *Model) showLogin(email, status string) {
	m.login = newLoginForm()
	m.login.set(0, email)
	m.login.move(1)
	m.goTo(screenLogin, false)
	m.status = status
}

func (m Model) authForm() form {
	switch m.screen {
	case screenSignUp:
		return m.signup
	case screenVerify:
		return m.verify
	case screenForgot:
		return m.forgot
	case screenReset:
		return m.reset
	default:
		return m.login
	}
}

func (m *Model) setAuthForm(f form) {
	switch m.screen {
	case screenSignUp:
		m.signup = f
	case screenVerify:
		m.verify = f
	case screenForgot:
		m.forgot = f
	case screenReset:
		m.reset = f
	default:
		m.login = f
	}
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	ctx, a := m.ctx, m.auth
	m.err, m.status = "", ""

	var cmd tea.Cmd
	switch m.screen {
	case screenLogin:
		email, password := m.login.value(0), m.login.inputs[1].Value()
		cmd = run(func() (tea.Msg, error) {
			res, err := a.SignIn(ctx, email, password)
			return signedInMsg{res}, err
		})
	case screenSignUp:
		email, password := m.signup.value(0), m.signup.inputs[1].Value()
		if password != m.signup.inputs[2].Value() {
			m.err = msgPasswordMis
			return m, nil
		}
		cmd = run(func() (tea.Msg, error) {
			user, err := a.SignUp(ctx, email, password)
			if err != nil {
				return nil, err
			}
			return signedUpMsg{user.Email}, nil
		})
	case screenVerify:
		email, code := m.verify.value(0), m.verify.value(1)
		cmd = run(func() (tea.Msg, error) {
			return verifiedMsg{email}, a.VerifyEmail(ctx, email, code)
		})
	case screenForgot:
		email := m.forgot.value(0)
		cmd = run(func() (tea.Msg, error) {
			return resetSentMsg{email}, a.RequestPasswordReset(ctx, email)
		})
	case screenReset:
		email, code, password := m.reset.value(0), m.reset.value(1), m.reset.inputs[2].Value()
		cmd = run(func() (tea.Msg, error) {
			return passwordResetMsg{email}, a.ResetPassword(ctx, email, code, password)
		})
	}
	m.busy = true
	return m, cmd
}

// signOutCmd revokes the current session.
func (m Model) signOutCmd() tea.Cmd {
	if m.session == nil {
		return func() tea.Msg { return signedOutMsg{} }
	}
	ctx, a, token := m.ctx, m.auth, m.session.Token
	return run(func() (tea.Msg, error) {
		ac, err := a.Authenticate(ctx, token)
		if err != nil {
			// Already expired or revoked.
			return signedOutMsg{}, nil
		}
		return signedOutMsg{}, a.SignOut(ctx, ac.SessionID)
	})
}
