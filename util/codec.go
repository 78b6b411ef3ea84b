package util

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

//DecodeGBK converts a GBK-encoded payload to UTF-8. Tencent quote endpoints
//still serve GBK bodies.
func DecodeGBK(data []byte) (string, error) {
	rdr := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	out, e := io.ReadAll(rdr)
	if e != nil {
		return "", errors.Wrap(e, "failed to decode GBK payload")
	}
	return string(out), nil
}
