package auth

import "net/http"

func headers(kv ...string) *AuthRequest {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return &AuthRequest{Headers: h}
}
