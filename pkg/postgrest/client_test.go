package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFilterHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "eq on uuid-ish value", got: Eq("abc-123"), want: "eq.abc-123"},
		{name: "is false", got: Is(false), want: "is.false"},
		{name: "gte date", got: Gte("2024-05-01"), want: "gte.2024-05-01"},
		{name: "lte date", got: Lte("2024-05-31"), want: "lte.2024-05-31"},
		{name: "in with several ids", got: In([]string{"a", "b", "c"}), want: "in.(a,b,c)"},
		{name: "in with one id", got: In([]string{"a"}), want: "in.(a)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, tt.got)
			}
		})
	}
}

func TestSelect_SendsFiltersAndAuthHeaders(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"x","pagado":false}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key")
	params := url.Values{}
	params.Set("pagado", Is(false))

	var rows []struct {
		ID   string `json:"id"`
		Paid bool   `json:"pagado"`
	}
	if err := client.Select(context.Background(), "paseos", params, &rows); err != nil {
		t.Fatalf("expected select to succeed, got %v", err)
	}

	if gotPath != "/rest/v1/paseos" {
		t.Fatalf("expected path /rest/v1/paseos, got %s", gotPath)
	}
	if gotQuery != "pagado=is.false" {
		t.Fatalf("expected query pagado=is.false, got %s", gotQuery)
	}
	if gotAPIKey != "service-key" || gotAuth != "Bearer service-key" {
		t.Fatalf("expected apikey and bearer headers, got %q / %q", gotAPIKey, gotAuth)
	}
	if len(rows) != 1 || rows[0].ID != "x" {
		t.Fatalf("unexpected decoded rows: %+v", rows)
	}
}

func TestSelectSingle_NoRowsMapsToIsNoRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.pgrst.object+json" {
			t.Errorf("expected single-object accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	var out struct{}
	err := client.SelectSingle(context.Background(), "propietarios", nil, &out)
	if err == nil {
		t.Fatalf("expected an error for zero rows")
	}
	if !IsNoRows(err) {
		t.Fatalf("expected IsNoRows to match, got %v", err)
	}
}

func TestUpdate_GuardedPatchReturnsOnlyClaimedRows(t *testing.T) {
	var gotQuery, gotPrefer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Type", "application/json")
		// The guard matched one of the two requested rows.
		w.Write([]byte(`[{"id":"won","pagado":true}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	params := url.Values{}
	params.Set("id", In([]string{"won", "lost"}))
	params.Set("pagado", Is(false))

	var claimed []struct {
		ID   string `json:"id"`
		Paid bool   `json:"pagado"`
	}
	patch := map[string]interface{}{"pagado": true}
	if err := client.Update(context.Background(), "paseos", params, patch, &claimed); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	if gotPrefer != "return=representation" {
		t.Fatalf("expected return=representation, got %q", gotPrefer)
	}
	wantQuery := url.Values{}
	wantQuery.Set("id", "in.(won,lost)")
	wantQuery.Set("pagado", "is.false")
	if gotQuery != wantQuery.Encode() {
		t.Fatalf("expected query %q, got %q", wantQuery.Encode(), gotQuery)
	}
	if len(claimed) != 1 || claimed[0].ID != "won" {
		t.Fatalf("expected only the claimed row back, got %+v", claimed)
	}
}

func TestCount_ParsesContentRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.Header.Get("Prefer") != "count=exact" {
			t.Errorf("expected count=exact prefer header, got %q", r.Header.Get("Prefer"))
		}
		w.Header().Set("Content-Range", "0-24/3573")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	count, err := client.Count(context.Background(), "propietarios", nil)
	if err != nil {
		t.Fatalf("expected count to succeed, got %v", err)
	}
	if count != 3573 {
		t.Fatalf("expected count=3573, got %d", count)
	}
}

func TestCount_EmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/0")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	count, err := client.Count(context.Background(), "propietarios", nil)
	if err != nil {
		t.Fatalf("expected count to succeed, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected count=0, got %d", count)
	}
}

func TestDo_RetriesReadsButNotMutations(t *testing.T) {
	var getCalls, patchCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getCalls++
			if getCalls == 1 {
				// Kill the connection so the client sees a transport error.
				hj, ok := w.(http.Hijacker)
				if !ok {
					t.Fatalf("response writer does not support hijacking")
				}
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
			w.Write([]byte(`[]`))
		case http.MethodPatch:
			patchCalls++
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatalf("response writer does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	var rows []struct{}
	if err := client.Select(context.Background(), "paseos", nil, &rows); err != nil {
		t.Fatalf("expected select to succeed on retry, got %v", err)
	}
	if getCalls != 2 {
		t.Fatalf("expected 2 GET attempts, got %d", getCalls)
	}

	err := client.Update(context.Background(), "paseos", nil, map[string]bool{"pagado": true}, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable for failed mutation, got %v", err)
	}
	if patchCalls != 1 {
		t.Fatalf("mutations must not be retried, got %d attempts", patchCalls)
	}
}

func TestDo_ParsesStructuredErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23503","message":"violates foreign key constraint","details":"Key (perro_id) is not present"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	err := client.Insert(context.Background(), "paseos", map[string]string{"perro_id": "nope"}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "23503" {
		t.Fatalf("unexpected error fields: %+v", apiErr)
	}
	if IsNoRows(err) {
		t.Fatalf("constraint violation must not be classified as no-rows")
	}
}
