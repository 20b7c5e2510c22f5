// Package codec serializes the text wire protocol shared by every
// process in the pipeline. Messages are UTF-8, comma-separated, and
// terminated by the framing delimiter.
package codec

import (
	"bytes"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/framing"
)

const fieldSep = ','

// AppendPriceTick encodes `<symbol>,<price>` plus the delimiter into dst.
func AppendPriceTick(dst []byte, tick schema.PriceTick) []byte {
	dst = append(dst, tick.Symbol...)
	dst = append(dst, fieldSep)
	dst = strconv.AppendFloat(dst, tick.Price, 'f', 2, 64)
	return append(dst, framing.Delimiter)
}

// DecodePriceTick parses a framed price message (delimiter stripped).
func DecodePriceTick(src []byte) (schema.PriceTick, error) {
	fields := bytes.Split(src, []byte{fieldSep})
	if len(fields) != 2 {
		return schema.PriceTick{}, errors.Wrap(exception.ErrFieldCount, "price message").
			With("fields", len(fields))
	}

	symbol := string(fields[0])
	if symbol == "" {
		return schema.PriceTick{}, errors.Wrap(exception.ErrMalformedMessage, "price message: empty symbol")
	}

	price, err := strconv.ParseFloat(string(fields[1]), 64)
	if err != nil {
		return schema.PriceTick{}, errors.Wrap(exception.ErrMalformedMessage, "price message: bad price").
			With("raw", string(fields[1]))
	}
	if price <= 0 {
		return schema.PriceTick{}, errors.Wrap(exception.ErrMalformedMessage, "price message: non-positive price").
			With("price", price)
	}

	return schema.PriceTick{Symbol: symbol, Price: price}, nil
}
