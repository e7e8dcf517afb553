// Package zxid implements the 128-bit composite transaction identifier
// used throughout the commit core: a total order on (epoch, xid) pairs.
package zxid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedZxid reports a string that doesn't match the "epoch:xid"
// format Parse expects.
var ErrMalformedZxid = errors.New("malformed zxid")

// Size is the fixed on-wire width of a Zxid: two big-endian int64s.
const Size = 16

// Zxid is a composite transaction identifier. Ordering is lexicographic
// on (Epoch, Xid): a Zxid from a later epoch always sorts after one
// from an earlier epoch, regardless of Xid.
type Zxid struct {
	Epoch int64
	Xid   int64
}

// NotExist is the sentinel that compares strictly less than every real
// Zxid. It is the starting point for a full-log iteration and the
// last-seen value of an empty log.
var NotExist = Zxid{Epoch: -1, Xid: -1}

// New returns the Zxid (epoch, xid).
func New(epoch, xid int64) Zxid {
	return Zxid{Epoch: epoch, Xid: xid}
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater
// than b, ordering lexicographically on (Epoch, Xid).
func Compare(a, b Zxid) int {
	switch {
	case a.Epoch < b.Epoch:
		return -1
	case a.Epoch > b.Epoch:
		return 1
	case a.Xid < b.Xid:
		return -1
	case a.Xid > b.Xid:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func Less(a, b Zxid) bool {
	return Compare(a, b) < 0
}

// LessOrEqual reports whether a sorts at or before b.
func LessOrEqual(a, b Zxid) bool {
	return Compare(a, b) <= 0
}

// Prev returns the Zxid immediately preceding z within the same epoch.
// Callers use this to express "one below a reconfiguration boundary";
// it is undefined (and unused) for z.Xid == math.MinInt64.
func Prev(z Zxid) Zxid {
	return Zxid{Epoch: z.Epoch, Xid: z.Xid - 1}
}

// String renders a Zxid as "epoch:xid", matching the conventional
// ZooKeeper hex zxid's two logical fields without the hex packing.
func (z Zxid) String() string {
	return fmt.Sprintf("%d:%d", z.Epoch, z.Xid)
}

// Parse parses the "epoch:xid" form String produces.
func Parse(s string) (Zxid, error) {
	epochStr, xidStr, ok := strings.Cut(s, ":")
	if !ok {
		return Zxid{}, fmt.Errorf("%w: %q", ErrMalformedZxid, s)
	}

	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return Zxid{}, fmt.Errorf("%w: %q: %w", ErrMalformedZxid, s, err)
	}

	xid, err := strconv.ParseInt(xidStr, 10, 64)
	if err != nil {
		return Zxid{}, fmt.Errorf("%w: %q: %w", ErrMalformedZxid, s, err)
	}

	return Zxid{Epoch: epoch, Xid: xid}, nil
}

// IsNotExist reports whether z is the NotExist sentinel.
func (z Zxid) IsNotExist() bool {
	return z == NotExist
}
