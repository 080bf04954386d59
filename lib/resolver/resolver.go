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

// Package resolver turns a connect request (a server id plus optional
// one-shot overrides) into a types.AuthMethod decision:
// check the overrides first, then the server's linked secrets in
// priority order, then fall back to the SSH agent. Nothing here ever
// returns plaintext to a caller that doesn't already hold it; the
// override path is the one case a caller legitimately supplies its
// own.
package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/dodoflix/tacoshell/lib/secretbox"
	"github.com/dodoflix/tacoshell/lib/store"
	"github.com/dodoflix/tacoshell/lib/types"
)

// Overrides are one-shot auth materials supplied with a single connect
// request, bypassing the stored-secret lookup entirely. At most one of
// Password/PrivateKey should be set; Password takes priority if both
// are.
type Overrides struct {
	Password   string
	PrivateKey string
	Passphrase string
}

func (o Overrides) empty() bool {
	return o.Password == "" && o.PrivateKey == ""
}

// Resolver resolves a server id to an AuthMethod.
type Resolver struct {
	repo      store.Repository
	encryptor *secretbox.Encryptor
}

// New builds a Resolver over repo (for the server's linked secrets) and
// encryptor (to recover their plaintext).
func New(repo store.Repository, encryptor *secretbox.Encryptor) *Resolver {
	return &Resolver{repo: repo, encryptor: encryptor}
}

// Resolve implements the fallback order: overrides, then the server's
// linked secrets by ascending priority (first entry wins — ties are
// broken by link insertion order, which SecretsFor already guarantees),
// then the local SSH agent. An empty overrides value and no linked
// secrets is not an error here; it resolves to AuthAgent, and the
// transport layer is the one that fails if no agent is reachable.
func (r *Resolver) Resolve(ctx context.Context, serverID uuid.UUID, overrides Overrides) (types.AuthMethod, error) {
	if !overrides.empty() {
		return fromOverrides(overrides), nil
	}

	secrets, err := r.repo.SecretsFor(ctx, serverID)
	if err != nil {
		return types.AuthMethod{}, trace.Wrap(err)
	}
	if len(secrets) > 0 {
		return r.fromSecret(secrets[0])
	}

	return types.AuthMethod{Kind: types.AuthAgent}, nil
}

func fromOverrides(o Overrides) types.AuthMethod {
	if o.Password != "" {
		return types.AuthMethod{Kind: types.AuthPassword, Password: o.Password}
	}
	return types.AuthMethod{Kind: types.AuthPrivateKey, Key: o.PrivateKey, Passphrase: o.Passphrase}
}

// fromSecret decodes the highest-priority linked secret into an
// AuthMethod. Token and kubeconfig secrets are stored for other
// surfaces (see SUPPLEMENTED FEATURES) but carry no SSH auth meaning;
// resolving one is auth/unsupported-kind.
func (r *Resolver) fromSecret(s *types.Secret) (types.AuthMethod, error) {
	switch s.Kind {
	case types.SecretKindPassword:
		plaintext, err := r.decrypt(s)
		if err != nil {
			return types.AuthMethod{}, err
		}
		return types.AuthMethod{Kind: types.AuthPassword, Password: plaintext}, nil
	case types.SecretKindPrivateKey:
		plaintext, err := r.decrypt(s)
		if err != nil {
			return types.AuthMethod{}, err
		}
		return types.AuthMethod{Kind: types.AuthPrivateKey, Key: plaintext}, nil
	default:
		return types.AuthMethod{}, trace.BadParameter("auth/unsupported-kind: secret kind %q cannot authenticate an SSH session", s.Kind)
	}
}

func (r *Resolver) decrypt(s *types.Secret) (string, error) {
	plaintext, err := r.encryptor.DecryptString(s.Ciphertext)
	if err != nil {
		if secretbox.Is(err, secretbox.KindEncoding) {
			return "", trace.BadParameter("auth/decode: secret %s did not decrypt to valid UTF-8", s.ID)
		}
		return "", trace.Wrap(err)
	}
	return plaintext, nil
}
