// Copyright (C) 2026 tacoshell authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package command

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// envelope is the {ok|err} wire convention every response follows.
type envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Err    *Error      `json:"err,omitempty"`
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{OK: true, Result: result})
}

func writeError(w http.ResponseWriter, err error) {
	wireErr := toWireError(err)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{OK: false, Err: &wireErr})
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// Router builds the gorilla/mux router exposing every command as a
// POST endpoint, plus the websocket event stream from Hub.
func Router(svc *Service, hub *Hub) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/commands/list_servers", func(w http.ResponseWriter, req *http.Request) {
		servers, err := svc.ListServers(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, servers)
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/add_server", func(w http.ResponseWriter, req *http.Request) {
		var body AddServerRequest
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		dto, err := svc.AddServer(req.Context(), body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, dto)
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/update_server", func(w http.ResponseWriter, req *http.Request) {
		var body UpdateServerRequest
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.UpdateServer(req.Context(), body); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/delete_server", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ ID string `json:"id"` }
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.DeleteServer(req.Context(), body.ID); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/list_secrets", func(w http.ResponseWriter, req *http.Request) {
		secrets, err := svc.ListSecrets(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, secrets)
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/add_secret", func(w http.ResponseWriter, req *http.Request) {
		var body AddSecretRequest
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		dto, err := svc.AddSecret(req.Context(), body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, dto)
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/delete_secret", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ ID string `json:"id"` }
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.DeleteSecret(req.Context(), body.ID); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/link_secret_to_server", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ServerID string `json:"server_id"`
			SecretID string `json:"secret_id"`
			Priority int32  `json:"priority"`
		}
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.LinkSecretToServer(req.Context(), body.ServerID, body.SecretID, body.Priority); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/unlink_secret_from_server", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ServerID string `json:"server_id"`
			SecretID string `json:"secret_id"`
		}
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.UnlinkSecretFromServer(req.Context(), body.ServerID, body.SecretID); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/connect_ssh", func(w http.ResponseWriter, req *http.Request) {
		var body ConnectRequest
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		dto, err := svc.ConnectSSH(req.Context(), body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, dto)
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/disconnect_ssh", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ SessionID string `json:"session_id"` }
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.DisconnectSSH(req.Context(), body.SessionID); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/send_ssh_input", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SessionID string `json:"session_id"`
			Input     string `json:"input"`
		}
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.SendSSHInput(req.Context(), body.SessionID, body.Input); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/resize_terminal", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SessionID string `json:"session_id"`
			Cols      int    `json:"cols"`
			Rows      int    `json:"rows"`
		}
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		if err := svc.ResizeTerminal(req.Context(), body.SessionID, body.Cols, body.Rows); err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, struct{}{})
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands/open_sftp", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ServerID   string `json:"server_id"`
			Password   string `json:"password"`
			PrivateKey string `json:"private_key"`
			Passphrase string `json:"passphrase"`
		}
		if err := decodeBody(req, &body); err != nil {
			writeError(w, badRequestErr(err))
			return
		}
		dto, err := svc.OpenSFTP(req.Context(), body.ServerID, overridesFromFields(body.Password, body.PrivateKey, body.Passphrase))
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, dto)
	}).Methods(http.MethodPost)

	r.HandleFunc("/events", hub.ServeWS)

	return r
}

func badRequestErr(err error) error {
	return decodeError{err}
}

// decodeError wraps a JSON decode failure so toWireError reports it as
// a plain validation error without a stable code (the command surface
// never had a chance to parse the request into a typed kind).
type decodeError struct{ err error }

func (d decodeError) Error() string { return "invalid request body: " + d.err.Error() }
