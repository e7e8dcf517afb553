// Package txn defines the immutable Transaction record that flows
// through the log and the ack processor.
package txn

import (
	"errors"
	"fmt"
	"math"

	"github.com/kavih/zabcore/internal/zxid"
)

// ErrBodyTooLarge reports a body that cannot be represented by the
// record format's signed 32-bit length prefix.
var ErrBodyTooLarge = errors.New("transaction body too large")

// MaxBodyLen is the largest body length the on-disk format can encode:
// body_len is a positive int32.
const MaxBodyLen = math.MaxInt32

// Transaction is an immutable {zxid, type, body} triple. Once
// constructed via New, a Transaction's fields are never mutated; callers
// that need a modified copy build a new value.
type Transaction struct {
	Zxid zxid.Zxid
	Type int32
	Body []byte
}

// New validates and constructs a Transaction. The body slice is copied
// so the returned Transaction is safe to retain independent of the
// caller's buffer.
func New(zx zxid.Zxid, txnType int32, body []byte) (Transaction, error) {
	if len(body) > MaxBodyLen {
		return Transaction{}, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	owned := make([]byte, len(body))
	copy(owned, body)

	return Transaction{Zxid: zx, Type: txnType, Body: owned}, nil
}

// RecordLen returns the number of bytes the on-disk record for this
// transaction occupies, including the fixed 24-byte header.
func (t Transaction) RecordLen() int64 {
	return 24 + int64(len(t.Body))
}
