package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func TestDecodeTransactionDispatchesByMessageType(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, recipient, _ := xcrypto.GenerateKeyPair()

	tr := &Transfer{Author: author, Recipient: recipient, Amount: 5, Seed: 1}
	tr.AuthorSignature = xcrypto.Sign(priv, codec.SigningBytes(NetworkID, uint16(codec.MessageTransfer), tr.Payload()))
	wire := codec.EncodeMessage(NetworkID, uint16(codec.MessageTransfer), tr.Payload(), tr.AuthorSignature)

	decoded, err := DecodeTransaction(wire)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	got, ok := decoded.(*Transfer)
	if !ok {
		t.Fatalf("decoded type = %T, want *Transfer", decoded)
	}
	if got.Author != author || got.Recipient != recipient || got.Amount != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.AuthorSignature != tr.AuthorSignature {
		t.Fatalf("wire signature not propagated onto decoded transaction")
	}
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)}}
	if !got.Verify(cfg) {
		t.Fatalf("decoded transaction failed to verify")
	}
}

func TestDecodeTransactionRejectsUnknownMessageType(t *testing.T) {
	tr := &Transfer{Seed: 1}
	wire := codec.EncodeMessage(NetworkID, 9999, tr.Payload(), xcrypto.Signature{})
	if _, err := DecodeTransaction(wire); err == nil {
		t.Fatalf("expected error for unknown message type")
	}
}

func TestDecodeTransactionRejectsTruncatedWire(t *testing.T) {
	if _, err := DecodeTransaction([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated wire message")
	}
}
