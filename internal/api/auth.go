package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
)

// Request signing headers.
const (
	HeaderSigner    = "X-Signer"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

const maxBodyBytes = 1 << 20

var (
	ErrMissingSignature = chain.NewError("missing_signature", "api: request is not signed")
	ErrInvalidSignature = chain.NewError("invalid_signature", "api: signature does not match signer")
	ErrStaleTimestamp   = chain.NewError("stale_timestamp", "api: request timestamp outside allowed skew")
	ErrReplayed         = chain.NewError("replayed_signature", "api: signature already used")
)

// SigningMessage is the text a client signs (EIP-191 personal message) to
// authorize a write: method and path, unix timestamp, and the keccak256 of
// the raw body.
func SigningMessage(method, path string, timestamp int64, body []byte) string {
	return fmt.Sprintf("%s %s\n%d\n%s", method, path, timestamp, crypto.Keccak256Hash(body).Hex())
}

// RecoverSigner returns the address that produced sig over msg. Only the
// wallet encoding is accepted: V is 27 or 28 and s is in the lower half of
// the curve order.
func RecoverSigner(msg string, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	v := sig[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		return common.Address{}, ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v-27, r, s, true) {
		return common.Address{}, ErrInvalidSignature
	}
	sig = bytes.Clone(sig)
	sig[crypto.RecoveryIDOffset] = v - 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Authenticator verifies signed requests and remembers each signed message
// it has accepted until its timestamp falls out of the skew window.
type Authenticator struct {
	maxSkew time.Duration
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // signer:message hash -> expiry
}

// NewAuthenticator accepts timestamps within maxSkew of now().
func NewAuthenticator(maxSkew time.Duration, now func() time.Time) *Authenticator {
	return &Authenticator{maxSkew: maxSkew, now: now, seen: make(map[string]time.Time)}
}

// Verify checks r's signature headers against body and returns the signer.
func (a *Authenticator) Verify(r *http.Request, body []byte) (common.Address, error) {
	signerHex := r.Header.Get(HeaderSigner)
	tsRaw := r.Header.Get(HeaderTimestamp)
	sigHex := r.Header.Get(HeaderSignature)
	if signerHex == "" || tsRaw == "" || sigHex == "" {
		return common.Address{}, ErrMissingSignature
	}
	if !common.IsHexAddress(signerHex) {
		return common.Address{}, ErrInvalidSignature
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return common.Address{}, ErrStaleTimestamp
	}
	now := a.now()
	signedAt := time.Unix(ts, 0)
	if signedAt.Before(now.Add(-a.maxSkew)) || signedAt.After(now.Add(a.maxSkew)) {
		return common.Address{}, ErrStaleTimestamp
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	msg := SigningMessage(r.Method, r.URL.Path, ts, body)
	signer, err := RecoverSigner(msg, sig)
	if err != nil {
		return common.Address{}, err
	}
	if signer != common.HexToAddress(signerHex) {
		return common.Address{}, ErrInvalidSignature
	}

	// Keyed on what was signed, not on the signature bytes.
	key := signer.Hex() + ":" + hexutil.Encode(accounts.TextHash([]byte(msg)))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prune(now)
	if _, dup := a.seen[key]; dup {
		return common.Address{}, ErrReplayed
	}
	a.seen[key] = signedAt.Add(a.maxSkew)
	return signer, nil
}

func (a *Authenticator) prune(now time.Time) {
	for k, exp := range a.seen {
		if now.After(exp) {
			delete(a.seen, k)
		}
	}
}

type signerKey struct{}

// SignerFrom returns the authenticated signer stored by Middleware.
func SignerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(signerKey{}).(common.Address)
	return addr, ok
}

// Middleware rejects unsigned or badly signed requests and stores the
// signer in the request context. The body is buffered and restored for the
// handler.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, ErrBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		signer, err := a.Verify(r, body)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), signerKey{}, signer)))
	})
}
