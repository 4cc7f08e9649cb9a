// Package nav decides where a navigation request may land given the
// current session state. Guard is pure; it is evaluated on every
// navigation and has no side effects.
package nav

import "github.com/teampulse/feedback-desk/internal/core/domain"

const (
	PathSignIn            = "/signin"
	PathManagerDashboard  = "/manager/dashboard"
	PathEmployeeDashboard = "/employee/dashboard"
)

// Decision is the outcome of a navigation check. When Allowed is false,
// Path is the redirect target.
type Decision struct {
	Allowed bool
	Path    string
}

func allow(path string) Decision    { return Decision{Allowed: true, Path: path} }
func redirect(path string) Decision { return Decision{Allowed: false, Path: path} }

// Guard maps (isAuthenticated, role, requested path) to an allowed
// destination or a redirect.
//
//   - The sign-in page is always reachable.
//   - Anonymous requests for anything else redirect to sign-in.
//   - An authenticated manager may only land on the manager dashboard, an
//     employee only on the employee dashboard; the opposite dashboard and
//     any other path redirect home.
//   - An authenticated session with an unknown role is inconsistent and
//     redirects to sign-in.
func Guard(isAuthenticated bool, role, requested string) Decision {
	if requested == PathSignIn {
		return allow(PathSignIn)
	}
	if !isAuthenticated {
		return redirect(PathSignIn)
	}

	home, ok := HomePath(role)
	if !ok {
		return redirect(PathSignIn)
	}
	if requested == home {
		return allow(home)
	}
	return redirect(home)
}

// HomePath returns the dashboard path for a role. ok is false for roles the
// product does not serve.
func HomePath(role string) (path string, ok bool) {
	switch role {
	case domain.RoleManager:
		return PathManagerDashboard, true
	case domain.RoleEmployee:
		return PathEmployeeDashboard, true
	default:
		return "", false
	}
}
