// Package orderbook implements the per-asset bid/ask price ladders: sorted
// insertion with time priority at a level, and eager matching of an
// incoming marketable order against the opposite ladder.
package orderbook

import (
	"sort"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
)

// Level is one price point in a ladder: an insertion-ordered list of
// resting offers, all at the same price.
type Level struct {
	Price  uint64
	Offers []ledger.Offer
}

const levelFixedSize = 8 + 8 // price + offers offset/count

func encodeLevel(l Level) []byte {
	w := codec.NewWriter(levelFixedSize)
	w.PutU64(0, l.Price)
	w.PutRecords(8, len(l.Offers), func(i int) []byte { return ledger.EncodeOffer(l.Offers[i]) })
	return w.Bytes()
}

func decodeLevel(buf []byte) (Level, error) {
	r, err := codec.NewReader(buf, levelFixedSize)
	if err != nil {
		return Level{}, err
	}
	l := Level{Price: r.U64(0)}
	if _, err := r.Records(8, 72, func(elem []byte) error {
		o, err := ledger.DecodeOffer(elem)
		if err != nil {
			return err
		}
		l.Offers = append(l.Offers, o)
		return nil
	}); err != nil {
		return Level{}, err
	}
	return l, nil
}

// EncodeLevels produces the canonical encoding of an ordered list of
// levels (a full bid or ask ladder for one asset).
func EncodeLevels(levels []Level) []byte {
	w := codec.NewWriter(8)
	blobs := make([][]byte, len(levels))
	for i, l := range levels {
		blobs[i] = encodeLevel(l)
	}
	w.PutBlobSeq(0, blobs)
	return w.Bytes()
}

// DecodeLevels parses a ladder from its canonical encoding.
func DecodeLevels(buf []byte) ([]Level, error) {
	r, err := codec.NewReader(buf, 8)
	if err != nil {
		return nil, err
	}
	var levels []Level
	if _, err := r.BlobSeq(0, func(elem []byte) error {
		l, err := decodeLevel(elem)
		if err != nil {
			return err
		}
		levels = append(levels, l)
		return nil
	}); err != nil {
		return nil, err
	}
	return levels, nil
}

// AddBid inserts o into the descending-by-price bids ladder at price,
// appending to an existing level's tail or creating a new level at the
// position that preserves descending order.
func AddBid(levels []Level, price uint64, o ledger.Offer) []Level {
	i := sort.Search(len(levels), func(i int) bool { return levels[i].Price <= price })
	return insertAt(levels, i, price, o)
}

// AddAsk inserts o into the ascending-by-price asks ladder at price,
// appending to an existing level's tail or creating a new level at the
// position that preserves ascending order.
func AddAsk(levels []Level, price uint64, o ledger.Offer) []Level {
	i := sort.Search(len(levels), func(i int) bool { return levels[i].Price >= price })
	return insertAt(levels, i, price, o)
}

func insertAt(levels []Level, i int, price uint64, o ledger.Offer) []Level {
	if i < len(levels) && levels[i].Price == price {
		levels[i].Offers = append(levels[i].Offers, o)
		return levels
	}
	levels = append(levels, Level{})
	copy(levels[i+1:], levels[i:])
	levels[i] = Level{Price: price, Offers: []ledger.Offer{o}}
	return levels
}

// CloseBid matches an incoming bid of amount at price P against the asks
// ladder, filling every level priced at or below P from the best price
// upward, oldest offer first within a level. It returns the updated asks
// ladder, the filled counter-parties, and the amount left unmatched.
func CloseBid(asks []Level, price, amount uint64) ([]Level, []ledger.CloseOffer, uint64) {
	return match(asks, price, amount, func(levelPrice, p uint64) bool { return levelPrice <= p })
}

// CloseAsk matches an incoming ask of amount at price P against the bids
// ladder, filling every level priced at or above P from the best price
// downward, oldest offer first within a level. It returns the updated
// bids ladder, the filled counter-parties, and the amount left unmatched.
func CloseAsk(bids []Level, price, amount uint64) ([]Level, []ledger.CloseOffer, uint64) {
	return match(bids, price, amount, func(levelPrice, p uint64) bool { return levelPrice >= p })
}

func match(levels []Level, price, amount uint64, marketable func(levelPrice, p uint64) bool) ([]Level, []ledger.CloseOffer, uint64) {
	var fills []ledger.CloseOffer
	remaining := amount
	out := levels[:0]
	for _, level := range levels {
		if remaining == 0 || !marketable(level.Price, price) {
			out = append(out, level)
			continue
		}
		offers := level.Offers
		idx := 0
		for remaining > 0 && idx < len(offers) {
			o := &offers[idx]
			fill := o.Amount
			if fill > remaining {
				fill = remaining
			}
			fills = append(fills, ledger.CloseOffer{Wallet: o.Wallet, Price: level.Price, Amount: fill})
			o.Amount -= fill
			remaining -= fill
			if o.Amount == 0 {
				idx++
			}
		}
		if idx < len(offers) {
			level.Offers = offers[idx:]
			out = append(out, level)
		}
	}
	return out, fills, remaining
}
