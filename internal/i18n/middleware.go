package i18n

import (
	"net/http"

	"github.com/viditforsv/quizplayer/internal/model"
)

// Middleware negotiates the language from Accept-Language (or a lang query
// parameter) and injects its localizer into every request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pref := r.URL.Query().Get("lang")
			if pref == "" {
				pref = r.Header.Get("Accept-Language")
			}
			lang := Match(pref)
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
			ctx = model.ContextWithLang(ctx, lang)
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
