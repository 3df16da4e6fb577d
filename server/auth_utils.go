package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-session/guard"
)

// seeOther sends the browser to location with a GET, whatever the request method
func seeOther(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// loginRetryLocation is the login page with the attempted email and return path kept
func loginRetryLocation(returnTo, email string) string {
	query := url.Values{}
	query.Set(guard.ReturnToParam, returnTo)
	query.Set("email", email)
	return RouteLogin + "?" + query.Encode()
}
