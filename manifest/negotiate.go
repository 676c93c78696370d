package manifest

import "strings"

// MIME types for each supported manifest wire version (spec §6 "Content
// negotiation via Accept header... v1..v3 per this spec").
const (
	MimeV1 = "application/vnd.restate.endpointmanifest.v1+json"
	MimeV2 = "application/vnd.restate.endpointmanifest.v2+json"
	MimeV3 = "application/vnd.restate.endpointmanifest.v3+json"
)

// supportedMimes is checked highest-version-first so Negotiate picks the
// newest mutually supported version.
var supportedMimes = []string{MimeV3, MimeV2, MimeV1}

// Negotiate picks the highest manifest MIME type both the SDK and the
// caller's Accept header support. An absent or "*/*" Accept defaults to
// v1; ok is false when no mutually supported version exists, which the
// caller maps to 415 Unsupported Media Type.
func Negotiate(accept string) (mimeType string, ok bool) {
	accept = strings.TrimSpace(accept)
	if accept == "" || accept == "*/*" {
		return MimeV1, true
	}
	offered := splitAccept(accept)
	for _, offer := range offered {
		if offer == "*/*" {
			return MimeV1, true
		}
	}
	for _, candidate := range supportedMimes {
		for _, offer := range offered {
			if offer == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}

func splitAccept(accept string) []string {
	parts := strings.Split(accept, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if semi := strings.IndexByte(p, ';'); semi >= 0 {
			p = strings.TrimSpace(p[:semi])
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
