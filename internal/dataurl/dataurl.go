package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const prefix = "data:"

func Is(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), prefix)
}

// Parse decodes a base64 data URL. A missing MIME type falls back to image/png.
func Parse(value string) (mimeType string, data []byte, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil, errors.New("empty data url")
	}
	if !Is(value) {
		return "", nil, errors.New("not a data url")
	}

	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return "", nil, errors.New("invalid data url")
	}

	meta := parts[0][len(prefix):]
	metaParts := strings.Split(meta, ";")
	mimeType = strings.TrimSpace(metaParts[0])
	if mimeType == "" {
		mimeType = "image/png"
	}

	isBase64 := false
	for _, p := range metaParts[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return mimeType, []byte(parts[1]), nil
	}

	data, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", err)
	}
	return mimeType, data, nil
}

func Encode(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
