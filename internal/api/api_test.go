package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"traking-shop/internal/app"
	"traking-shop/internal/catalog"
	"traking-shop/internal/config"
	"traking-shop/internal/database"
	"traking-shop/internal/export"
	"traking-shop/internal/models"
)

const catalogWeapons = `{"status": 200, "data": [
  {"uuid": "w-vandal", "displayName": "Vandal", "skins": [
    {"uuid": "s-v0", "displayName": "Vandal", "displayIcon": "https://img/v0.png", "chromas": []},
    {"uuid": "s-v1", "displayName": "Prime Vandal", "displayIcon": "https://img/v1.png", "chromas": [], "contentTierUuid": "t-premium"},
    {"uuid": "s-v2", "displayName": "Reaver Vandal", "displayIcon": "https://img/v2.png", "chromas": []}
  ]},
  {"uuid": "w-phantom", "displayName": "Phantom", "skins": [
    {"uuid": "s-p1", "displayName": "Oni Phantom", "displayIcon": "https://img/p1.png", "chromas": []},
    {"uuid": "s-p2", "displayName": "Prime Phantom", "displayIcon": "https://img/p2.png", "chromas": []}
  ]}
]}`

const catalogTiers = `{"status": 200, "data": [
  {"uuid": "t-premium", "displayName": "Premium Edition", "devName": "Premium", "rank": 2}
]}`

type testEnv struct {
	router  *gin.Engine
	handler *APIHandler
	db      *gorm.DB
}

func newTestEnv(t *testing.T, weaponsStatus int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/weapons":
			w.WriteHeader(weaponsStatus)
			_, _ = w.Write([]byte(catalogWeapons))
		case "/v1/contenttiers":
			_, _ = w.Write([]byte(catalogTiers))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		ValorantAPIBase:   upstream.URL,
		ValorantUserAgent: "test-agent",
		RetryAttempts:     1,
		RetryBaseDelay:    time.Millisecond,
		ImportPauseEvery:  50,
	}
	a := app.Build(cfg, db)

	r := gin.New()
	r.Use(RequestLogger())
	h := SetupRoutes(r.Group("/api/v1"), a.Store, a.Importer, a.Implementer)
	return &testEnv{router: r, handler: h, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) product(t *testing.T) string {
	t.Helper()
	p := models.Product{Name: "Account"}
	require.NoError(t, e.db.Create(&p).Error)
	return p.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestImportEndpoint(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	w := env.do(t, http.MethodPost, "/api/v1/catalog/import", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[catalog.ImportResult](t, w)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 4, res.Total)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = env.do(t, http.MethodPost, "/api/v1/catalog/import", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[catalog.ImportResult](t, w)
	assert.Equal(t, 4, res.Updated)

	w = env.do(t, http.MethodGet, "/api/v1/catalog/import/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)
}

func TestImportRejectsConcurrentRun(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	env.handler.importJob = &importJob{Running: true, StartedAt: time.Now()}

	w := env.do(t, http.MethodPost, "/api/v1/catalog/import", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestImportUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusServiceUnavailable)

	w := env.do(t, http.MethodPost, "/api/v1/catalog/import", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	// the failed run released the slot
	w = env.do(t, http.MethodPost, "/api/v1/catalog/import", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestBrowseCatalog(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/catalog/import", nil).Code)

	w := env.do(t, http.MethodGet, "/api/v1/catalog/skins?weapon=Vandal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Data  []models.Skin `json:"data"`
		Total int64         `json:"total"`
	}](t, w)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Data, 2)

	w = env.do(t, http.MethodGet, "/api/v1/catalog/skins?page_size=1&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[struct {
		Data  []models.Skin `json:"data"`
		Total int64         `json:"total"`
	}](t, w)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Data, 1)

	w = env.do(t, http.MethodGet, "/api/v1/catalog/facets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Prime"`)
	assert.Contains(t, w.Body.String(), `"Epic"`)
}

func TestAssignFlows(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	id := env.product(t)
	base := "/api/v1/products/" + id + "/skins"

	w := env.do(t, http.MethodPost, base+"/sample", gin.H{"count": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[catalog.AssignResult](t, w)
	assert.Equal(t, 2, res.Linked)
	assert.Equal(t, map[string]int{"Vandal": 1, "Phantom": 1}, res.DistributionByWeapon)

	w = env.do(t, http.MethodPost, base+"/sample", gin.H{"count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, base+"/random", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode[catalog.AssignResult](t, w)
	assert.Equal(t, 2, res.Linked)

	w = env.do(t, http.MethodPost, base+"/random", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[struct {
		Product models.Product           `json:"product"`
		Links   []models.AccountSkinLink `json:"links"`
	}](t, w)
	require.Len(t, listing.Links, 4)
	assert.Equal(t, 4, listing.Product.SkinsCount)

	w = env.do(t, http.MethodDelete, base+"/"+listing.Links[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, base+"/"+listing.Links[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, base, gin.H{"skin_ids": []string{listing.Links[0].SkinID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode[catalog.AssignResult](t, w)
	assert.Equal(t, 1, res.Linked)
}

func TestAssignCollection(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	id := env.product(t)
	base := "/api/v1/products/" + id + "/skins/collection"

	// the collection flow reads stored skins only
	w := env.do(t, http.MethodPost, base, gin.H{"collection": "Prime"})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/catalog/import", nil).Code)

	w = env.do(t, http.MethodPost, base, gin.H{"collection": "Prime", "extra": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[catalog.AssignResult](t, w)
	assert.Equal(t, 3, res.Linked)

	w = env.do(t, http.MethodPost, base, gin.H{"collection": "Prime"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, base, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownProduct(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/products/nope/skins", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/v1/products/nope/skins/random", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/products/nope/skins/export", nil).Code)
}

func TestExportAccountSkins(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	id := env.product(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/products/"+id+"/skins/sample", gin.H{"count": 3}).Code)

	w := env.do(t, http.MethodGet, "/api/v1/products/"+id+"/skins/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestImportStream(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/catalog/import/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var stages []string
	var final streamMessage
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "progress" {
			stages = append(stages, msg.Event.Stage)
			continue
		}
		final = msg
		break
	}

	require.Equal(t, "result", final.Type, final.Error)
	require.NotNil(t, final.Result)
	assert.Equal(t, 4, final.Result.Created)
	assert.Contains(t, stages, catalog.StageFetch)
	assert.Contains(t, stages, catalog.StageDone)
}
