package txn

import (
	"fmt"

	"github.com/dmoshi/dimoshi-core/codec"
)

// DecodeTransaction parses a complete wire message (header, payload, and
// trailing signature) into the concrete Transaction it encodes, dispatched
// by the header's message_type. The returned value's outer author
// signature field (AuthorSignature, RecipientSignature, or
// BuyerSignature, depending on kind) is populated from the wire trailing
// signature; it still must be passed through Verify before use.
func DecodeTransaction(wire []byte) (Transaction, error) {
	header, err := codec.DecodeHeader(wire)
	if err != nil {
		return nil, fmt.Errorf("txn: decode header: %w", err)
	}

	payload, sig, err := codec.DecodeMessage(wire, NetworkID, header.MessageType)
	if err != nil {
		return nil, fmt.Errorf("txn: decode message: %w", err)
	}

	switch codec.MessageType(header.MessageType) {
	case codec.MessageAddAssets:
		tx, err := DecodeAddAssetsPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.AuthorSignature = sig
		return tx, nil

	case codec.MessageDeleteAssets:
		tx, err := DecodeDeleteAssetsPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.AuthorSignature = sig
		return tx, nil

	case codec.MessageTransfer:
		tx, err := DecodeTransferPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.AuthorSignature = sig
		return tx, nil

	case codec.MessageExchange:
		tx, err := DecodeExchangePayload(payload)
		if err != nil {
			return nil, err
		}
		tx.RecipientSignature = sig
		return tx, nil

	case codec.MessageExchangeIntermediary:
		tx, err := DecodeExchangeIntermediaryPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.RecipientSignature = sig
		return tx, nil

	case codec.MessageTrade:
		tx, err := DecodeTradePayload(payload)
		if err != nil {
			return nil, err
		}
		tx.BuyerSignature = sig
		return tx, nil

	case codec.MessageTradeIntermediary:
		tx, err := DecodeTradeIntermediaryPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.BuyerSignature = sig
		return tx, nil

	case codec.MessageBid:
		tx, err := DecodeBidPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.AuthorSignature = sig
		return tx, nil

	case codec.MessageAsk:
		tx, err := DecodeAskPayload(payload)
		if err != nil {
			return nil, err
		}
		tx.AuthorSignature = sig
		return tx, nil

	default:
		return nil, fmt.Errorf("txn: unknown message type %d", header.MessageType)
	}
}
