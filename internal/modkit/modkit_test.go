package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"echokit/internal/modkit/httpkit"
	phttp "echokit/internal/platform/net/http"
	kit "echokit/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func TestBuild_DefaultsThenOverrides(t *testing.T) {
	b := Build([]Option{WithName("retrieval"), WithPrefix("/a")}, WithPrefix("/b"))
	if b.Name != "retrieval" || b.Prefix != "/b" {
		t.Fatalf("got %+v", b)
	}
}

func TestBase_Mounts(t *testing.T) {
	var order []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "mw")
			next.ServeHTTP(w, r)
		})
	}
	m := Base{
		B: Build(nil, WithName("x"), WithPrefix("/x"), WithMiddlewares(mw),
			WithRegister(func(r httpkit.Router) {
				httpkit.Get(r, "/extra", func(*http.Request) (any, error) { return "extra", nil })
			})),
		Register: func(r httpkit.Router) {
			httpkit.Get(r, "/own", func(*http.Request) (any, error) { return "own", nil })
		},
	}
	mux := chi.NewRouter()
	MountAll(phttp.AdaptChi(mux), m)

	for _, p := range []string{"/x/own", "/x/extra"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: %d", p, rr.Code)
		}
	}
	if len(order) != 2 {
		t.Fatalf("middleware ran %d times", len(order))
	}
	if m.Name() != "x" || m.Prefix() != "/x" {
		t.Fatalf("name/prefix")
	}
}

func TestBase_RequiresName(t *testing.T) {
	kit.MustPanic(t, func() { _ = Base{}.Name() })
}
