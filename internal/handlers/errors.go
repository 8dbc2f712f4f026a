package handlers

import (
	"log"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondWithError sends a JSON error body. userMsg goes to the client;
// logMsg and err go to the log, so internal details never leak out.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}
