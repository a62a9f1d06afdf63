package client

// Redirect targets used by the guards
const (
	LoginPath           = "/login"
	HomePath            = "/"
	PendingApprovalPath = "/pending-approval"
)

// Decision tells a view whether to render or where to send the user instead.
// Guards only shape navigation; the API enforces the same rules on every request.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

func allow() Decision { return Decision{Allowed: true} }

func redirect(path string) Decision { return Decision{RedirectTo: path} }

// Guard evaluates route access against a session
type Guard struct {
	session *Session
}

func NewGuard(session *Session) *Guard {
	return &Guard{session: session}
}

func (g *Guard) RequireAuthenticated() Decision {
	if !g.session.IsAuthenticated() {
		return redirect(LoginPath)
	}
	return allow()
}

// RequireAdmin sends signed-out users to the login page and everyone else who is not an admin home
func (g *Guard) RequireAdmin() Decision {
	if !g.session.IsAuthenticated() {
		return redirect(LoginPath)
	}
	if !g.session.IsAdmin() {
		return redirect(HomePath)
	}
	return allow()
}

// RequireApproved admits approved customers and admins. Pending accounts are shown the
// approval notice, declined ones go home.
func (g *Guard) RequireApproved() Decision {
	if !g.session.IsAuthenticated() {
		return redirect(LoginPath)
	}
	if g.session.IsApproved() {
		return allow()
	}
	if g.session.IsPending() {
		return redirect(PendingApprovalPath)
	}
	return redirect(HomePath)
}
