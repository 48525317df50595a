package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func signedBid(t *testing.T, priv xcrypto.PrivateKey, author xcrypto.PublicKey, asset ledger.TradeAsset) *Bid {
	t.Helper()
	b := &Bid{Author: author, Asset: asset, Seed: 1}
	b.AuthorSignature = xcrypto.Sign(priv, codec.SigningBytes(NetworkID, uint16(codec.MessageBid), b.Payload()))
	return b
}

func TestBidPayloadRoundTrip(t *testing.T) {
	_, author, _ := xcrypto.GenerateKeyPair()
	b := &Bid{Author: author, Asset: ledger.TradeAsset{Id: ledger.AssetId{1}, Amount: 3, Price: 10}, Seed: 5}
	decoded, err := DecodeBidPayload(b.Payload())
	if err != nil {
		t.Fatalf("DecodeBidPayload: %v", err)
	}
	if decoded.Author != author || decoded.Asset.Amount != 3 || decoded.Asset.Price != 10 || decoded.Seed != 5 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestBidApplyFillsAgainstRestingAskAndSettlesBalances(t *testing.T) {
	askerPriv, asker, _ := xcrypto.GenerateKeyPair()
	bidderPriv, bidder, _ := xcrypto.GenerateKeyPair()
	assetID := ledger.AssetId{2}
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)}}

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(bidder, 1000); err != nil {
		t.Fatalf("seed bidder balance: %v", err)
	}
	askerWallet, err := view.Get(asker)
	if err != nil {
		t.Fatalf("Get asker: %v", err)
	}
	askerWallet.Credit(assetID, 5)
	view.Flush()

	ask := &Ask{Author: asker, Asset: ledger.TradeAsset{Id: assetID, Amount: 5, Price: 10}, Seed: 1}
	ask.AuthorSignature = xcrypto.Sign(askerPriv, codec.SigningBytes(NetworkID, uint16(codec.MessageAsk), ask.Payload()))
	if err := ask.Apply(f, cfg); err != nil {
		t.Fatalf("Ask Apply: %v", err)
	}

	bid := signedBid(t, bidderPriv, bidder, ledger.TradeAsset{Id: assetID, Amount: 3, Price: 12})
	if !bid.Verify(cfg) {
		t.Fatalf("expected Verify to succeed")
	}
	if err := bid.Apply(f, cfg); err != nil {
		t.Fatalf("Bid Apply: %v", err)
	}

	view = NewWalletView(f)
	bidderWallet, err := view.Get(bidder)
	if err != nil {
		t.Fatalf("Get bidder: %v", err)
	}
	if bidderWallet.Balance != 1000-3*10 {
		t.Fatalf("bidder balance = %d, want %d (fills clear at the resting ask's price)", bidderWallet.Balance, 1000-3*10)
	}
	if bidderWallet.BundleAmount(assetID) != 3 {
		t.Fatalf("bidder asset amount = %d, want 3", bidderWallet.BundleAmount(assetID))
	}
	askerWallet, err = view.Get(asker)
	if err != nil {
		t.Fatalf("Get asker: %v", err)
	}
	if askerWallet.Balance != 3*10 {
		t.Fatalf("asker balance = %d, want %d", askerWallet.Balance, 3*10)
	}
	if askerWallet.BundleAmount(assetID) != 2 {
		t.Fatalf("asker asset amount = %d, want 2 (5 - 3 filled)", askerWallet.BundleAmount(assetID))
	}

	remainingAsks, err := loadLadder(f, string(store.BucketOrderBookAsks), assetID)
	if err != nil {
		t.Fatalf("loadLadder asks: %v", err)
	}
	if len(remainingAsks) != 1 || remainingAsks[0].Offers[0].Amount != 2 {
		t.Fatalf("remaining asks = %+v, want one level with amount 2", remainingAsks)
	}
	remainingBids, err := loadLadder(f, string(store.BucketOrderBookBids), assetID)
	if err != nil {
		t.Fatalf("loadLadder bids: %v", err)
	}
	if len(remainingBids) != 0 {
		t.Fatalf("expected no rested bid (fully filled), got %+v", remainingBids)
	}
}

func TestBidApplyRestsUnfilledRemainderWhenNoMarketableAsks(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	assetID := ledger.AssetId{3}
	cfg := ledger.Configuration{}

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(author, 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	view.Flush()

	bid := signedBid(t, priv, author, ledger.TradeAsset{Id: assetID, Amount: 4, Price: 5})
	if err := bid.Apply(f, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	bids, err := loadLadder(f, string(store.BucketOrderBookBids), assetID)
	if err != nil {
		t.Fatalf("loadLadder bids: %v", err)
	}
	if len(bids) != 1 || bids[0].Price != 5 || bids[0].Offers[0].Amount != 4 {
		t.Fatalf("expected the whole bid to rest: %+v", bids)
	}
}
