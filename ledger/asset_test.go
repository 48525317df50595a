package ledger

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func sampleFees() Fees {
	return Fees{
		Trade:    Fee{Fixed: 10},
		Exchange: Fee{Fixed: 10},
		Transfer: Fee{Fixed: 10},
	}
}

func TestAssetInfoEncodeDecodeRoundTrip(t *testing.T) {
	_, creator, _ := xcrypto.GenerateKeyPair()
	a := AssetInfo{
		Creator:     creator,
		Origin:      xcrypto.DomainHash([]byte("origin tx")),
		TotalAmount: 42,
		Fees:        sampleFees(),
	}
	buf := a.Encode()
	got, err := DecodeAssetInfo(buf)
	if err != nil {
		t.Fatalf("DecodeAssetInfo: %v", err)
	}
	if got != a {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, a)
	}
}

func TestMetaAssetEncodeDecodeRoundTrip(t *testing.T) {
	_, receiver, _ := xcrypto.GenerateKeyPair()
	m := MetaAsset{
		Receiver: receiver,
		MetaData: "asset",
		Amount:   3,
		Fees:     sampleFees(),
	}
	buf := m.Encode()
	got, err := DecodeMetaAsset(buf)
	if err != nil {
		t.Fatalf("DecodeMetaAsset: %v", err)
	}
	if got.Receiver != m.Receiver || got.MetaData != m.MetaData || got.Amount != m.Amount || !got.Fees.Equal(m.Fees) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestTotalPriceSumsAmountTimesPrice(t *testing.T) {
	assets := []TradeAsset{
		{Id: AssetId{1}, Amount: 2, Price: 1000},
		{Id: AssetId{2}, Amount: 3, Price: 500},
	}
	if got := TotalPrice(assets); got != 2*1000+3*500 {
		t.Fatalf("got %d", got)
	}
}

func TestNewAssetIdDistinguishesCreatorAndMetadata(t *testing.T) {
	_, creatorA, _ := xcrypto.GenerateKeyPair()
	_, creatorB, _ := xcrypto.GenerateKeyPair()
	idA := NewAssetId("widget", creatorA)
	idB := NewAssetId("widget", creatorB)
	if idA == idB {
		t.Fatalf("AssetId must differ across creators")
	}
	idA2 := NewAssetId("widget-v2", creatorA)
	if idA == idA2 {
		t.Fatalf("AssetId must differ across metadata")
	}
}
