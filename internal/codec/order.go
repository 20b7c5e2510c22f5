package codec

import (
	"bytes"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/framing"
)

// AppendOrder encodes `<id>,<action>,<qty>,<symbol>,<price>` plus the
// delimiter into dst.
func AppendOrder(dst []byte, order schema.Order) []byte {
	dst = strconv.AppendUint(dst, order.ID, 10)
	dst = append(dst, fieldSep)
	dst = append(dst, order.Side.String()...)
	dst = append(dst, fieldSep)
	dst = strconv.AppendInt(dst, order.Qty, 10)
	dst = append(dst, fieldSep)
	dst = append(dst, order.Symbol...)
	dst = append(dst, fieldSep)
	dst = strconv.AppendFloat(dst, order.Price, 'f', 2, 64)
	return append(dst, framing.Delimiter)
}

// DecodeOrder parses a framed order message (delimiter stripped).
func DecodeOrder(src []byte) (schema.Order, error) {
	fields := bytes.Split(src, []byte{fieldSep})
	if len(fields) != 5 {
		return schema.Order{}, errors.Wrap(exception.ErrFieldCount, "order message").
			With("fields", len(fields))
	}

	id, err := strconv.ParseUint(string(fields[0]), 10, 64)
	if err != nil {
		return schema.Order{}, errors.Wrap(exception.ErrMalformedMessage, "order message: bad id").
			With("raw", string(fields[0]))
	}

	side, ok := schema.ParseSide(string(fields[1]))
	if !ok {
		return schema.Order{}, errors.Wrap(exception.ErrMalformedMessage, "order message: bad action").
			With("raw", string(fields[1]))
	}

	qty, err := strconv.ParseInt(string(fields[2]), 10, 64)
	if err != nil || qty <= 0 {
		return schema.Order{}, errors.Wrap(exception.ErrMalformedMessage, "order message: bad quantity").
			With("raw", string(fields[2]))
	}

	symbol := string(fields[3])
	if symbol == "" {
		return schema.Order{}, errors.Wrap(exception.ErrMalformedMessage, "order message: empty symbol")
	}

	price, err := strconv.ParseFloat(string(fields[4]), 64)
	if err != nil || price <= 0 {
		return schema.Order{}, errors.Wrap(exception.ErrMalformedMessage, "order message: bad price").
			With("raw", string(fields[4]))
	}

	return schema.Order{
		ID:     id,
		Side:   side,
		Qty:    qty,
		Symbol: symbol,
		Price:  price,
	}, nil
}
