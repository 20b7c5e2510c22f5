package codec

import (
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/framing"
)

// AppendSentiment encodes a sentiment value plus the delimiter into dst.
func AppendSentiment(dst []byte, s schema.Sentiment) []byte {
	dst = strconv.AppendInt(dst, int64(s), 10)
	return append(dst, framing.Delimiter)
}

// DecodeSentiment parses a framed sentiment message (delimiter stripped).
func DecodeSentiment(src []byte) (schema.Sentiment, error) {
	v, err := strconv.Atoi(string(src))
	if err != nil {
		return 0, errors.Wrap(exception.ErrMalformedMessage, "sentiment message: bad value").
			With("raw", string(src))
	}

	s := schema.Sentiment(v)
	if s != s.Clamp() {
		return 0, errors.Wrap(exception.ErrMalformedMessage, "sentiment message: out of range").
			With("value", v)
	}

	return s, nil
}
