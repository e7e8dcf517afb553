package txnlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kavih/zabcore/internal/txn"
	"github.com/kavih/zabcore/internal/zxid"
)

// headerLen is the fixed prefix of every record: epoch, xid, type,
// body_len, each an 8- or 4-byte big-endian integer.
const headerLen = 24

// Encode writes the on-disk record for t to w: epoch (i64 BE), xid (i64
// BE), type (i32 BE), body_len (i32 BE), then body_len bytes of body.
// No padding, no checksum, no framing beyond body_len.
func Encode(w io.Writer, t txn.Transaction) error {
	var header [headerLen]byte

	binary.BigEndian.PutUint64(header[0:8], uint64(t.Zxid.Epoch))
	binary.BigEndian.PutUint64(header[8:16], uint64(t.Zxid.Xid))
	binary.BigEndian.PutUint32(header[16:20], uint32(t.Type))
	binary.BigEndian.PutUint32(header[20:24], uint32(len(t.Body)))

	_, err := w.Write(header[:])
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if len(t.Body) == 0 {
		return nil
	}

	_, err = w.Write(t.Body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	return nil
}

// Decode reads one record from r. It returns the decoded Transaction
// and the total number of bytes the record occupied (headerLen +
// body_len). A reader that hits EOF before the full header or before
// body_len body bytes fails with ErrUnexpectedEOF. A negative body_len
// fails with ErrMalformed.
func Decode(r io.Reader) (txn.Transaction, int64, error) {
	var header [headerLen]byte

	_, err := io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return txn.Transaction{}, 0, fmt.Errorf("decode header: %w: %w", ErrUnexpectedEOF, err)
		}

		return txn.Transaction{}, 0, fmt.Errorf("decode header: %w", err)
	}

	epoch := int64(binary.BigEndian.Uint64(header[0:8]))
	xid := int64(binary.BigEndian.Uint64(header[8:16]))
	txnType := int32(binary.BigEndian.Uint32(header[16:20]))
	bodyLen := int32(binary.BigEndian.Uint32(header[20:24]))

	if bodyLen < 0 {
		return txn.Transaction{}, 0, fmt.Errorf("decode body_len %d: %w", bodyLen, ErrMalformed)
	}

	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		_, err = io.ReadFull(r, body)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return txn.Transaction{}, 0, fmt.Errorf("decode body: %w: %w", ErrUnexpectedEOF, err)
			}

			return txn.Transaction{}, 0, fmt.Errorf("decode body: %w", err)
		}
	}

	t := txn.Transaction{Zxid: zxid.New(epoch, xid), Type: txnType, Body: body}

	return t, headerLen + int64(bodyLen), nil
}
