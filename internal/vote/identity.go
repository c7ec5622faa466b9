package vote

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// IdentityKind tags which components an Identity carries.
type IdentityKind int

const (
	KindUnresolved IdentityKind = iota
	KindAccount
	KindHashed
	KindBoth
)

func (k IdentityKind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindHashed:
		return "hashed"
	case KindBoth:
		return "both"
	default:
		return "unresolved"
	}
}

// Identity is the key votes are deduplicated on: an account id, a salted IP
// hash, or both. Build one with Account, Hashed or Both; the zero value is
// unresolved and is never admitted.
type Identity struct {
	kind      IdentityKind
	accountID string
	ipHash    string
}

func Account(accountID string) Identity {
	if accountID == "" {
		return Identity{}
	}
	return Identity{kind: KindAccount, accountID: accountID}
}

func Hashed(ipHash string) Identity {
	if ipHash == "" {
		return Identity{}
	}
	return Identity{kind: KindHashed, ipHash: ipHash}
}

func Both(accountID, ipHash string) Identity {
	switch {
	case accountID == "":
		return Hashed(ipHash)
	case ipHash == "":
		return Account(accountID)
	}
	return Identity{kind: KindBoth, accountID: accountID, ipHash: ipHash}
}

func (i Identity) Kind() IdentityKind { return i.kind }

func (i Identity) IsZero() bool { return i.kind == KindUnresolved }

func (i Identity) AccountID() (string, bool) {
	return i.accountID, i.kind == KindAccount || i.kind == KindBoth
}

func (i Identity) IPHash() (string, bool) {
	return i.ipHash, i.kind == KindHashed || i.kind == KindBoth
}

// Keys returns one key per component. Two identities that share any key
// must not be admitted concurrently for the same listing.
func (i Identity) Keys() []string {
	var keys []string
	if id, ok := i.AccountID(); ok {
		keys = append(keys, "account:"+id)
	}
	if h, ok := i.IPHash(); ok {
		keys = append(keys, "ip:"+h)
	}
	return keys
}

// Matches reports whether a recorded vote belongs to this identity under
// OR-matching: same account id, or same ip hash.
func (i Identity) Matches(userID, ipHash *string) bool {
	if id, ok := i.AccountID(); ok && userID != nil && *userID == id {
		return true
	}
	if h, ok := i.IPHash(); ok && ipHash != nil && *ipHash == h {
		return true
	}
	return false
}

// String never includes the hash itself so identities are safe to log.
func (i Identity) String() string {
	if id, ok := i.AccountID(); ok {
		return i.kind.String() + ":" + id
	}
	return i.kind.String()
}

var errEmptySalt = errors.New("vote: ip hash salt must not be empty")

// Resolver turns request metadata into an Identity. The salt is fixed at
// construction and raw addresses never leave Resolve.
type Resolver struct {
	salt []byte
}

func NewResolver(salt string) (*Resolver, error) {
	if salt == "" {
		return nil, errEmptySalt
	}
	return &Resolver{salt: []byte(salt)}, nil
}

// Resolve combines the authenticated account id (may be empty) with the
// client address found in header. It fails with ErrIdentityUnresolved when
// neither is available.
func (r *Resolver) Resolve(accountID string, header http.Header) (Identity, error) {
	var ipHash string
	if ip := ClientIP(header); ip != "" {
		ipHash = r.HashIP(ip)
	}
	id := Both(accountID, ipHash)
	if id.IsZero() {
		return Identity{}, ErrIdentityUnresolved
	}
	return id, nil
}

// HashIP returns hex(HMAC-SHA256(salt, ip)).
func (r *Resolver) HashIP(ip string) string {
	h := hmac.New(sha256.New, r.salt)
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

// ClientIP returns the first hop of X-Forwarded-For, else X-Real-IP, else "".
func ClientIP(header http.Header) string {
	if xff := header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(header.Get("X-Real-IP"))
}
