package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chronolookup-api/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, h http.Handler, proxies ...string) (*API, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := NewClient(Options{Timeout: 5 * time.Second, ProxyChain: proxies}, zerolog.Nop())
	api := NewAPI(client, Endpoints{
		Search:         srv.URL + "/api/unified-search",
		ItemInfo:       srv.URL + "/api/item-info",
		MobInfo:        srv.URL + "/api/mob-info",
		MobSearch:      srv.URL + "/api/mob-search",
		MobDrops:       srv.URL + "/api/mob-drops",
		SpriteBase:     srv.URL,
		IconBase:       srv.URL + "/gms62",
		RenderBase:     srv.URL + "/gms83",
		LocaleTW:       srv.URL + "/twms256",
		LocaleEN:       srv.URL + "/gms83",
		LocaleENLookup: srv.URL + "/gms62",
	})
	return api, srv
}

func TestAPI_SearchPostsQuery(t *testing.T) {
	var got map[string]string
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/unified-search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"items":[{"item_id":"1302000","item_name":"Power Sword"}]}`)
	}))

	body, err := api.Search(context.Background(), "power")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query": "power"}, got)

	entities := api.ParseSearch(model.KindItem, body)
	assert.Equal(t, []model.Entity{{ID: "1302000", Name: "Power Sword"}}, entities)
}

func TestAPI_SearchNonOK(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := api.Search(context.Background(), "power")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestAPI_ParseSearch(t *testing.T) {
	api := NewAPI(nil, Endpoints{SpriteBase: "https://sprites.example"})

	body := []byte(`{"mobs":[
		{"mob_id":100100,"mob_name":"Snail","sprite_override":{"url":"/sprites/100100.png"}},
		{"mob_id":"","mob_name":"Nameless id"},
		{"mob_id":"100101"},
		{"mob_id":"100101","mob_name":"Blue Snail","sprite_override":{"url":"https://cdn.example/b.png"}}
	]}`)

	got := api.ParseSearch(model.KindMob, body)
	assert.Equal(t, []model.Entity{
		{ID: "100100", Name: "Snail", SpriteOverrideURL: "https://sprites.example/sprites/100100.png"},
		{ID: "100101", Name: "Blue Snail", SpriteOverrideURL: "https://cdn.example/b.png"},
	}, got)

	assert.Empty(t, api.ParseSearch(model.KindItem, body), "missing collection field is an empty list")
	assert.NotNil(t, api.ParseSearch(model.KindItem, []byte("not json")))
	assert.Empty(t, api.ParseSearch(model.KindItem, []byte("not json")))
}

func TestClient_ProxyChainFallsThrough(t *testing.T) {
	var proxyHits, directHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/broken-proxy"):
			atomic.AddInt32(&proxyHits, 1)
			w.WriteHeader(http.StatusBadGateway)
		case r.URL.Path == "/target":
			atomic.AddInt32(&directHits, 1)
			_, _ = io.WriteString(w, `{"ok":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{ProxyChain: []string{srv.URL + "/broken-proxy?", ""}}, zerolog.Nop())

	body, err := c.Get(context.Background(), srv.URL+"/target", Proxied)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&proxyHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&directHits))

	_, err = c.Get(context.Background(), srv.URL+"/target", Direct)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&proxyHits), "direct route skips the proxy chain")
}

func TestClient_TargetsEscapeURL(t *testing.T) {
	c := NewClient(Options{ProxyChain: []string{"https://proxy.example/?", ""}}, zerolog.Nop())
	got := c.targets("https://api.example/item-info?itemId=1", Proxied)
	assert.Equal(t, []string{
		"https://proxy.example/?https%3A%2F%2Fapi.example%2Fitem-info%3FitemId%3D1",
		"https://api.example/item-info?itemId=1",
	}, got)
}

func TestAPI_DetailAndHeader(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/item-info":
			assert.Equal(t, "1302000", r.URL.Query().Get("itemId"))
			_, _ = io.WriteString(w, `{"item_name":"Power Sword","type":"Eqp","sub_type":"Weapon","equipment":{}}`)
		case "/api/mob-info":
			assert.Equal(t, "100100", r.URL.Query().Get("mobId"))
			_, _ = io.WriteString(w, `{"mob":{"mob_name":"Snail","level":1},"description":"slow"}`)
		}
	}))

	body, err := api.Detail(context.Background(), model.KindItem, "1302000")
	require.NoError(t, err)
	h, err := ParseDetailHeader(model.KindItem, body)
	require.NoError(t, err)
	assert.Equal(t, model.DetailHeader{Name: "Power Sword", Type: "Eqp", SubType: "Weapon"}, h)

	body, err = api.Detail(context.Background(), model.KindMob, "100100")
	require.NoError(t, err)
	h, err = ParseDetailHeader(model.KindMob, body)
	require.NoError(t, err)
	assert.Equal(t, "Snail", h.Name)
}

func TestAPI_CrossRefs(t *testing.T) {
	api, srv := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/mob-search":
			_, _ = io.WriteString(w, `[{"mob_id":100100,"mob_name":"Snail","chance":"1.5"},{"mob_id":"100101","mob_name":"Blue Snail","chance":0.25,"sprite_override":{"url":"/s/b.png"}}]`)
		case "/api/mob-drops":
			_, _ = io.WriteString(w, `{"error":"oops"}`)
		}
	}))

	refs, err := api.CrossRefs(context.Background(), model.KindItem, "1302000")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, model.CrossRef{Kind: model.KindMob, ID: "100100", Name: "Snail", Chance: 1.5,
		IconURL: srv.URL + "/gms83/mob/100100/render/stand"}, refs[0])
	assert.Equal(t, srv.URL+"/s/b.png", refs[1].IconURL)

	_, err = api.CrossRefs(context.Background(), model.KindMob, "100100")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAPI_IconURLs(t *testing.T) {
	api := NewAPI(nil, Endpoints{
		SpriteBase: "https://sprites.example",
		IconBase:   "https://icons.example/GMS/62",
		RenderBase: "https://icons.example/gms/83",
	})

	assert.Equal(t, "https://icons.example/GMS/62/item/1302000/icon", api.PrimaryIconURL(model.KindItem, "1302000"))
	assert.Equal(t, "https://icons.example/GMS/62/mob/100100/render/stand", api.PrimaryIconURL(model.KindMob, "100100"))

	u, route := api.SecondaryIconURL(model.KindItem, "1302000")
	assert.Equal(t, "https://sprites.example/sprites/1302000.png", u)
	assert.Equal(t, Proxied, route)

	u, route = api.SecondaryIconURL(model.KindMob, "100100")
	assert.Equal(t, "https://icons.example/gms/83/mob/100100/render/stand", u)
	assert.Equal(t, Direct, route)

	assert.Equal(t, "https://sprites.example/a.png", api.SpriteURL("a.png"))
	assert.Equal(t, "https://x.example/a.png", api.SpriteURL("https://x.example/a.png"))
}

func TestAPI_FetchIconDataURI(t *testing.T) {
	api, srv := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))

	blob, err := api.FetchIcon(context.Background(), srv.URL+"/gms62/item/1/icon", Direct)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw==", blob.DataURI())
}

func TestAPI_Locale(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/twms256/item":
			assert.Equal(t, "楓葉", r.URL.Query().Get("searchFor"))
			_, _ = io.WriteString(w, `[{"id":4000000,"name":"楓葉"},{"id":4000001,"name":""},{"id":4000002,"name":"楓葉"}]`)
		case "/gms62/item/4000000":
			_, _ = io.WriteString(w, `{"id":4000000,"description":{"name":"Maple Leaf"}}`)
		case "/gms62/mob/100100":
			_, _ = io.WriteString(w, `{"id":100100,"name":"Snail","description":"a string here"}`)
		case "/gms62/item/4000002":
			_, _ = io.WriteString(w, `{"id":4000002}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	rows, err := api.SearchNames(ctx, model.KindItem, model.ModeChToEn, "楓葉")
	require.NoError(t, err)
	assert.Equal(t, []model.Suggestion{{ID: "4000000", Name: "楓葉"}, {ID: "4000002", Name: "楓葉"}}, rows)

	name, err := api.LookupName(ctx, model.KindItem, model.ModeChToEn, "4000000")
	require.NoError(t, err)
	assert.Equal(t, "Maple Leaf", name)

	name, err = api.LookupName(ctx, model.KindMob, model.ModeChToEn, "100100")
	require.NoError(t, err)
	assert.Equal(t, "Snail", name)

	_, err = api.LookupName(ctx, model.KindItem, model.ModeChToEn, "4000002")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = api.LookupName(ctx, model.KindItem, model.ModeChToEn, "9999999")
	assert.True(t, IsNotFound(err))
}
