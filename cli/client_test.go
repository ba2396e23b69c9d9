package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ApiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &ApiClient{httpClient: server.Client(), BaseURL: server.URL, Token: "tok"}
}

func TestWithdraw_SendsTokenAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/groceries/tomato sauce/withdraw" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"] != "150" || body["unit"] != "ml" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"withdrawal":{"name":"Tomato sauce","amount":"0.15","unit":"l","batches":1}}`))
	})

	wd, err := client.Withdraw("tomato sauce", "150", "ml")
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if wd.Amount != "0.15" || wd.Unit != "l" || wd.Batches != 1 {
		t.Errorf("Withdraw() = %+v", wd)
	}
}

func TestDo_DecodesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"INSUFFICIENT_STOCK","error":"only 1 available","details":{"available":"1"}}`))
	})

	_, err := client.Withdraw("milk", "2", "l")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "INSUFFICIENT_STOCK" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestGetExpiring_FormatsDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("before"); got != "2026-03-04" {
			t.Errorf("before = %q", got)
		}
		_, _ = w.Write([]byte(`{"batches":[{"name":"Milk","amount":"1","unit":"l","expiry":"2026-03-02"}]}`))
	})

	batches, err := client.GetExpiring(time.Date(2026, time.March, 4, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetExpiring() error = %v", err)
	}
	if len(batches) != 1 || batches[0].Name != "Milk" {
		t.Errorf("GetExpiring() = %+v", batches)
	}
}

func TestGetValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/value":
			_, _ = w.Write([]byte(`{"total":"305"}`))
		case "/api/v1/expired/value":
			_, _ = w.Write([]byte(`{"total":"30"}`))
		default:
			http.NotFound(w, r)
		}
	})

	active, expired, err := client.GetValue()
	if err != nil || active != "305" || expired != "30" {
		t.Errorf("GetValue() = %q, %q, %v", active, expired, err)
	}
}

func TestParseWithdrawInput(t *testing.T) {
	name, amount, unit, err := parseWithdrawInput(" Milk , 0.5 ,l")
	if err != nil || name != "Milk" || amount != "0.5" || unit != "l" {
		t.Errorf("parseWithdrawInput() = %q %q %q %v", name, amount, unit, err)
	}

	for _, bad := range []string{"", "milk,1", "milk,,l", "a,b,c,d"} {
		if _, _, _, err := parseWithdrawInput(bad); err == nil {
			t.Errorf("parseWithdrawInput(%q) expected error", bad)
		}
	}
}

func TestRecipeRows_MarksCookable(t *testing.T) {
	all := []Recipe{{Name: "Omelette", Ingredients: make([]Ingredient, 2)}, {Name: "Pancakes", Ingredients: make([]Ingredient, 4)}}
	rows := recipeRows(all, []Recipe{{Name: "omelette"}})

	if rows[0][2] != "yes" || rows[1][2] != "no" {
		t.Errorf("recipeRows() = %v", rows)
	}
	if rows[1][1] != "4" {
		t.Errorf("ingredient count = %q", rows[1][1])
	}
}
