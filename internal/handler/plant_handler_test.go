package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gardenlog/internal/service"
)

func TestPlantHandlersCRUD(t *testing.T) {
	api, gdb, cleanup := setupTestAPI(t)
	defer cleanup()

	user := createHandlerTestUser(t, gdb, "alice")
	r := newAuthedEngine(user)
	r.GET("/plants", api.GetPlants)
	r.POST("/plants", api.CreatePlant)
	r.GET("/plants/:uid", api.GetPlant)
	r.DELETE("/plants/:uid", api.DeletePlant)
	r.POST("/plants/:uid/water", api.WaterPlant)

	// 创建
	w := postJSON(t, r, "/plants", map[string]any{
		"name":               "龟背竹",
		"watering_frequency": 7,
		"care_notes":         "**每周浇水**一次",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created service.PlantView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.PlantUID == "" || created.Name != "龟背竹" {
		t.Fatalf("unexpected plant: %+v", created)
	}
	// 养护笔记渲染为净化后的 HTML
	if created.CareNotesHTML == "" || !bytes.Contains([]byte(created.CareNotesHTML), []byte("<strong>")) {
		t.Fatalf("expected rendered care notes, got %q", created.CareNotesHTML)
	}

	// 名称缺失
	w = postJSON(t, r, "/plants", map[string]any{"watering_frequency": 7})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	// 列表
	req := httptest.NewRequest(http.MethodGet, "/plants", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Plants []service.PlantView `json:"plants"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Plants) != 1 {
		t.Fatalf("expected 1 plant, got %d", len(listed.Plants))
	}

	// 浇水
	req = httptest.NewRequest(http.MethodPost, "/plants/"+created.PlantUID+"/water", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// 未知植物
	req = httptest.NewRequest(http.MethodGet, "/plants/nope", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	// 删除
	req = httptest.NewRequest(http.MethodDelete, "/plants/"+created.PlantUID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/plants/"+created.PlantUID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestIdentifyPlantRejectsMissingImage(t *testing.T) {
	api, gdb, cleanup := setupTestAPI(t)
	defer cleanup()

	user := createHandlerTestUser(t, gdb, "alice")
	r := newAuthedEngine(user)
	r.POST("/plants/identify", api.IdentifyPlant)

	req := httptest.NewRequest(http.MethodPost, "/plants/identify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
