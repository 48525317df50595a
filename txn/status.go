package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
)

// Status is the TxStatus record: the outcome of executing one transaction,
// keyed in the store by its transaction hash.
type Status struct {
	Kind ledger.ErrorKind
}

const statusFixedSize = 1

// Encode produces the canonical encoding of s.
func (s Status) Encode() []byte {
	w := codec.NewWriter(statusFixedSize)
	w.PutU8(0, uint8(s.Kind))
	return w.Bytes()
}

// DecodeStatus parses a Status from its canonical encoding.
func DecodeStatus(buf []byte) (Status, error) {
	r, err := codec.NewReader(buf, statusFixedSize)
	if err != nil {
		return Status{}, err
	}
	return Status{Kind: ledger.ErrorKind(r.U8(0))}, nil
}

// Ok reports whether s records a successful execution.
func (s Status) Ok() bool { return s.Kind == ledger.ErrorKindNone }
