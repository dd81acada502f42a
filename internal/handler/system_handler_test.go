package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSystemSettingsMasked(t *testing.T) {
	api, gdb, cleanup := setupTestAPI(t)
	defer cleanup()

	user := createHandlerTestUser(t, gdb, "alice")
	r := newAuthedEngine(user)
	r.GET("/system/settings", api.GetSystemSettings)
	r.PUT("/system/settings", api.UpdateSystemSettings)

	body := map[string]string{
		"ai_provider":         "deepseek",
		"deepseek_api_key":    "sk-abcdef123456",
		"recognition_api_key": "pn-key-7890",
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, "/system/settings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/system/settings", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var settings map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if settings["ai_provider"] != "deepseek" {
		t.Fatalf("expected deepseek provider, got %q", settings["ai_provider"])
	}
	// 密钥只返回掩码
	if settings["deepseek_api_key"] != "****3456" {
		t.Fatalf("expected masked key, got %q", settings["deepseek_api_key"])
	}
	if settings["openai_api_key"] != "" {
		t.Fatalf("expected empty mask for unset key, got %q", settings["openai_api_key"])
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"abc":           "****",
		"abcd":          "****",
		"sk-1234567890": "****7890",
	}
	for input, want := range cases {
		if got := maskSecret(input); got != want {
			t.Fatalf("maskSecret(%q) = %q, want %q", input, got, want)
		}
	}
}
