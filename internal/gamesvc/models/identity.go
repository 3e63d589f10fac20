package models

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"
)

// AnonymousPrincipal is the text form of an unauthenticated caller. It is
// never accepted as an Identity.
const AnonymousPrincipal = "anonymous"

var (
	ErrEmptyIdentity     = errors.New("identity is empty")
	ErrAnonymousIdentity = errors.New("anonymous identity is not allowed")
	ErrMalformedIdentity = errors.New("identity contains control characters")
)

// Identity is an opaque caller identity. The zero value is not a valid
// identity; values are only produced by ParseIdentity.
type Identity struct {
	principal string
}

// ParseIdentity canonicalizes raw and returns the identity it names.
func ParseIdentity(raw string) (Identity, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return Identity{}, ErrEmptyIdentity
	}
	if p == AnonymousPrincipal {
		return Identity{}, ErrAnonymousIdentity
	}
	if strings.IndexFunc(p, unicode.IsControl) >= 0 {
		return Identity{}, ErrMalformedIdentity
	}
	return Identity{principal: p}, nil
}

// MustParseIdentity is ParseIdentity for literals known to be valid.
func MustParseIdentity(raw string) Identity {
	id, err := ParseIdentity(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identity) IsValid() bool {
	return i.principal != ""
}

// Equal compares canonical forms. Two invalid identities are never equal.
func (i Identity) Equal(o Identity) bool {
	return i.IsValid() && i.principal == o.principal
}

func (i Identity) String() string {
	return i.principal
}

func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.principal)
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*i = Identity{}
		return nil
	}
	id, err := ParseIdentity(raw)
	if err != nil {
		return err
	}
	*i = id
	return nil
}

// IdentityStrings returns the canonical text of each identity, for storage
// backends that persist identities as text.
func IdentityStrings(ids []Identity) []string {
	out := make([]string, len(ids))
	for n, id := range ids {
		out[n] = id.String()
	}
	return out
}

// ParseIdentities is the inverse of IdentityStrings.
func ParseIdentities(raw []string) ([]Identity, error) {
	out := make([]Identity, 0, len(raw))
	for _, r := range raw {
		id, err := ParseIdentity(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
