package util

import "net/http"

// Plain-text error responders used by the proxy and health handlers.

func RespondBadRequest(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusBadRequest)
}

func RespondForbidden(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusForbidden)
}

func RespondMethodNotAllowed(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusMethodNotAllowed)
}

func RespondBadGateway(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusBadGateway)
}
