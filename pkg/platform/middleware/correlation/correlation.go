// Package correlation propagates a caller-supplied correlation id, minting one
// when absent, and echoes it on the response.
package correlation

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bloodlink/pkg/requestcontext"
)

const Header = "X-Correlation-ID"

const maxLength = 128

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
