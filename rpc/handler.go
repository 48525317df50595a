package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dmoshi/dimoshi-core/consensus"
	"github.com/dmoshi/dimoshi-core/fees"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/ledgercfg"
	"github.com/dmoshi/dimoshi-core/orderbook"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/txn"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	store  *store.Store
	cfg    *ledgercfg.Handle
	engine *consensus.Engine
}

// NewHandler creates an RPC Handler.
func NewHandler(s *store.Store, cfg *ledgercfg.Handle, engine *consensus.Engine) *Handler {
	return &Handler{store: s, cfg: cfg, engine: engine}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getWallet":
		return h.getWallet(req)
	case "getAsset":
		return h.getAsset(req)
	case "getTxStatus":
		return h.getTxStatus(req)
	case "getOrderBook":
		return h.getOrderBook(req)
	case "submitTx":
		return h.submitTx(req)
	case "estimateFee":
		return h.estimateFee(req)
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func parsePublicKey(hexStr string) (xcrypto.PublicKey, error) {
	return xcrypto.PublicKeyFromHex(hexStr)
}

func parseAssetId(hexStr string) (ledger.AssetId, error) {
	var id ledger.AssetId
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return id, fmt.Errorf("invalid asset id hex: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("asset id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (h *Handler) snapshot() (*store.Snapshot, Response, bool) {
	snap, err := h.store.Snapshot()
	if err != nil {
		return nil, errResponse(nil, CodeInternalError, err.Error()), false
	}
	return snap, Response{}, true
}

func (h *Handler) getWallet(req Request) Response {
	var params struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	pub, err := parsePublicKey(params.PublicKey)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	snap, errResp, ok := h.snapshot()
	if !ok {
		return errResp
	}
	defer snap.Close()

	raw, err := snap.Get(string(store.BucketWallets), ledger.WalletKey(pub))
	if err == store.ErrNotFound {
		w := ledger.ZeroWallet()
		return okResponse(req.ID, w)
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	wallet, err := ledger.DecodeWallet(raw)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, wallet)
}

func (h *Handler) getAsset(req Request) Response {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := parseAssetId(params.ID)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	snap, errResp, ok := h.snapshot()
	if !ok {
		return errResp
	}
	defer snap.Close()

	raw, err := snap.Get(string(store.BucketAssets), ledger.AssetKey(id))
	if err == store.ErrNotFound {
		return errResponse(req.ID, CodeInvalidParams, "unknown asset")
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	info, err := ledger.DecodeAssetInfo(raw)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, info)
}

func (h *Handler) getTxStatus(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := xcrypto.HashFromHex(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	snap, errResp, ok := h.snapshot()
	if !ok {
		return errResp
	}
	defer snap.Close()

	raw, err := snap.Get(string(store.BucketTxStatus), ledger.TxStatusKey(hash))
	if err == store.ErrNotFound {
		return errResponse(req.ID, CodeInvalidParams, "unknown transaction")
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	status, err := txn.DecodeStatus(raw)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"ok": status.Ok(), "error_kind": status.Kind})
}

func (h *Handler) getOrderBook(req Request) Response {
	var params struct {
		AssetID string `json:"asset_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := parseAssetId(params.AssetID)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	snap, errResp, ok := h.snapshot()
	if !ok {
		return errResp
	}
	defer snap.Close()

	bids, err := loadLevels(snap, store.BucketOrderBookBids, id)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	asks, err := loadLevels(snap, store.BucketOrderBookAsks, id)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"bids": bids, "asks": asks})
}

func loadLevels(reader store.Reader, bucket []byte, id ledger.AssetId) ([]orderbook.Level, error) {
	raw, err := reader.Get(string(bucket), ledger.OrderBookKey(id))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return orderbook.DecodeLevels(raw)
}

func (h *Handler) submitTx(req Request) Response {
	var params struct {
		Wire string `json:"wire"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	wire, err := hex.DecodeString(params.Wire)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "wire: "+err.Error())
	}
	tx, err := txn.DecodeTransaction(wire)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	commit, err := h.engine.ProcessBatch([]txn.Transaction{tx})
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	hash := tx.Hash()
	accepted := commit.TxCount > 0
	return okResponse(req.ID, map[string]any{"tx_hash": hash.String(), "accepted": accepted})
}

func (h *Handler) estimateFee(req Request) Response {
	var params struct {
		Wire string `json:"wire"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	wire, err := hex.DecodeString(params.Wire)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "wire: "+err.Error())
	}
	tx, err := txn.DecodeTransaction(wire)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	snap, errResp, ok := h.snapshot()
	if !ok {
		return errResp
	}
	defer snap.Close()

	cfg := h.cfg.Get()
	estimate, err := estimateTxFee(snap, cfg, tx)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	out := make(map[string]uint64, len(estimate))
	for payer, amount := range estimate {
		out[payer.String()] = amount
	}
	return okResponse(req.ID, out)
}

func bundleAmounts(bundles []ledger.AssetBundle) []feeshare.AssetAmount {
	out := make([]feeshare.AssetAmount, len(bundles))
	for i, b := range bundles {
		out[i] = feeshare.AssetAmount{Id: b.Id, Amount: b.Amount}
	}
	return out
}

func tradeAssetAmounts(assets []ledger.TradeAsset) []feeshare.AssetAmount {
	out := make([]feeshare.AssetAmount, len(assets))
	for i, a := range assets {
		out[i] = feeshare.AssetAmount{Id: a.Id, Amount: a.Amount}
	}
	return out
}

// estimateTxFee dispatches a decoded transaction to the matching fees.*
// estimator. Bid and Ask have no service fee or third-party component
// worth estimating ahead of matching (the settlement price is only known
// once the order book is walked), so they report no obligation here.
func estimateTxFee(reader store.Reader, cfg ledger.Configuration, tx txn.Transaction) (map[xcrypto.PublicKey]uint64, error) {
	switch t := tx.(type) {
	case *txn.AddAssets:
		var total uint64
		for _, m := range t.MetaAssets {
			total += m.Amount
		}
		return fees.AddAssets(cfg, t.Author, total), nil
	case *txn.DeleteAssets:
		return fees.DeleteAssets(cfg, t.Author), nil
	case *txn.Transfer:
		return fees.Transfer(reader, cfg, t.Author, bundleAmounts(t.Assets))
	case *txn.Exchange:
		return fees.Exchange(reader, cfg, t.Offer.Strategy, t.Offer.Sender, t.Offer.Recipient,
			bundleAmounts(t.Offer.SenderAssets), bundleAmounts(t.Offer.RecipientAssets))
	case *txn.ExchangeIntermediary:
		return fees.ExchangeIntermediary(reader, cfg, t.Offer.Strategy, t.Offer.Sender, t.Offer.Recipient, t.Offer.Intermediary, t.Offer.Commission,
			bundleAmounts(t.Offer.SenderAssets), bundleAmounts(t.Offer.RecipientAssets))
	case *txn.Trade:
		return fees.Trade(reader, cfg, t.Offer.Strategy, t.Offer.Buyer, t.Offer.Seller, tradeAssetAmounts(t.Offer.Assets))
	case *txn.TradeIntermediary:
		return fees.TradeIntermediary(reader, cfg, t.Offer.Strategy, t.Offer.Buyer, t.Offer.Seller, t.Offer.Intermediary, t.Offer.Commission,
			tradeAssetAmounts(t.Offer.Assets))
	case *txn.Bid, *txn.Ask:
		return map[xcrypto.PublicKey]uint64{}, nil
	default:
		return nil, fmt.Errorf("rpc: unknown transaction type %T", tx)
	}
}
