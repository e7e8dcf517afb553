package txnlog

import "errors"

// ErrOutOfOrder reports an append whose zxid does not strictly exceed
// the log's last-seen zxid. Callers should use errors.Is(err, ErrOutOfOrder).
var ErrOutOfOrder = errors.New("zxid out of order")

// ErrUnexpectedEOF reports a reader hitting EOF mid-record: a partial
// trailing record. Callers should use errors.Is(err, ErrUnexpectedEOF).
var ErrUnexpectedEOF = errors.New("unexpected eof mid-record")

// ErrMalformed reports an impossible header, such as a negative body
// length. Callers should use errors.Is(err, ErrMalformed).
var ErrMalformed = errors.New("malformed record")

// ErrCorrupt reports a partial trailing record found during recovery
// scan at open. Callers should use errors.Is(err, ErrCorrupt).
var ErrCorrupt = errors.New("log corrupt")

// ErrUnsupported reports a call to Trim, which this log does not
// implement. Callers should use errors.Is(err, ErrUnsupported).
var ErrUnsupported = errors.New("unsupported operation")

// ErrClosed reports an operation against a log whose writer has already
// been closed, typically after a prior I/O failure mid-append.
var ErrClosed = errors.New("log closed")
