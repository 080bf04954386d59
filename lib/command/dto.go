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
	"time"

	"github.com/dodoflix/tacoshell/lib/types"
)

// ServerDTO is the wire shape of a Server. It carries nothing the
// repository doesn't already treat as non-sensitive.
type ServerDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Protocol  string    `json:"protocol"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func serverToDTO(s *types.Server) ServerDTO {
	return ServerDTO{
		ID:        s.ID.String(),
		Name:      s.Name,
		Host:      s.Host,
		Port:      s.Port,
		Username:  s.Username,
		Protocol:  string(s.Protocol),
		Tags:      s.Tags,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SecretDTO is the wire shape of a Secret — name and kind only.
// Ciphertext never crosses this boundary.
type SecretDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func secretToDTO(s *types.Secret) SecretDTO {
	return SecretDTO{ID: s.ID.String(), Name: s.Name, Kind: string(s.Kind)}
}

// SessionDTO is returned by connect_ssh.
type SessionDTO struct {
	SessionID string `json:"session_id"`
	ServerID  string `json:"server_id"`
	Connected bool   `json:"connected"`
}

// SftpHandleDTO is returned by the supplemented open_sftp command.
type SftpHandleDTO struct {
	HandleID string `json:"handle_id"`
	ServerID string `json:"server_id"`
}
