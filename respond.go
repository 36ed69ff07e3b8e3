package shopgate

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON body with the given status. Encode failures
// after the header is written cannot be reported to the client and are
// intentionally discarded.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the standard success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError normalizes err into an [*Error] and writes the standard error
// envelope with the error's HTTP status and machine-readable code.
func WriteError(w http.ResponseWriter, err error) {
	appErr := AsError(err)
	WriteJSON(w, appErr.Status, Envelope{
		Success: false,
		Error:   string(appErr.Code),
		Message: appErr.Message,
	})
}
