package mail

import (
	"encoding/base64"
	"strings"

	"google.golang.org/api/gmail/v1"
)

const (
	mimePlain = "text/plain"
	mimeHTML  = "text/html"
	mimePDF   = "application/pdf"
)

// decodeBase64URL decodes Gmail's base64url payloads, with or without padding
func decodeBase64URL(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

// partData decodes the inline body of a part, or "" if it has none or it is corrupt
func partData(part *gmail.MessagePart) string {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return ""
	}
	data, err := decodeBase64URL(part.Body.Data)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(data), "")
}

// MessageBody returns the text body of a payload. The first text/plain part
// wins, searching direct children before nested ones; text/html is converted
// to text only when no plain part exists.
func MessageBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if body := findPart(payload, mimePlain); body != "" {
		return CleanText(body)
	}
	if html := findPart(payload, mimeHTML); html != "" {
		return HTMLToText(html)
	}
	if len(payload.Parts) == 0 && !isAttachment(payload) {
		return CleanText(partData(payload))
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if len(part.Parts) == 0 {
		if strings.EqualFold(part.MimeType, mimeType) && !isAttachment(part) {
			return partData(part)
		}
		return ""
	}
	for _, child := range part.Parts {
		if len(child.Parts) == 0 && strings.EqualFold(child.MimeType, mimeType) && !isAttachment(child) {
			if data := partData(child); data != "" {
				return data
			}
		}
	}
	for _, child := range part.Parts {
		if len(child.Parts) == 0 {
			continue
		}
		if data := findPart(child, mimeType); data != "" {
			return data
		}
	}
	return ""
}

func isAttachment(part *gmail.MessagePart) bool {
	return part.Filename != ""
}

// PDFParts collects every part, at any depth, that is a named PDF attachment
func PDFParts(payload *gmail.MessagePart) []*gmail.MessagePart {
	if payload == nil {
		return nil
	}
	var out []*gmail.MessagePart
	for _, part := range payload.Parts {
		if strings.EqualFold(part.MimeType, mimePDF) && part.Filename != "" {
			out = append(out, part)
		}
		out = append(out, PDFParts(part)...)
	}
	return out
}

// Header returns the value of the named header, or ""
func Header(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
