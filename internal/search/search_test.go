package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) (*Client, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))
		queries = append(queries, r.URL.Query().Get("q"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient("serp-key", srv.URL+"/")
	require.NoError(t, err)
	return c, &queries
}

func organic(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"position":%d,"title":"Title %d","link":"https://example.com/%d"}`, i+1, i+1, i+1)
	}
	return `{"organic_results":[` + strings.Join(items, ",") + `]}`
}

func TestClient_Search(t *testing.T) {
	c, queries := serve(t, http.StatusOK, organic(7))

	results, err := c.Search(context.Background(), "golang bbolt")
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.Equal(t, "Title 1", results[0].Title)
	assert.Equal(t, []string{"golang bbolt"}, *queries)
}

func TestClient_SearchKeepsRankedList(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{"organic_results":[{"title":"no link"},{"title":"ok","link":"https://ok"}]}`)

	results, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "no link", results[0].Title)
	assert.Equal(t, "ok", results[1].Title)
}

func TestTop_WindowBeforeFilter(t *testing.T) {
	results := make([]Result, 7)
	for i := range results {
		results[i] = Result{Title: fmt.Sprintf("T%d", i+1), Link: fmt.Sprintf("L%d", i+1)}
	}
	results[1].Link = ""

	top := Top(results, 5)
	require.Len(t, top, 4)
	assert.Equal(t, []string{"T1", "T3", "T4", "T5"}, []string{top[0].Title, top[1].Title, top[2].Title, top[3].Title})

	got := FormatTop(results, 5)
	assert.Equal(t, "Top search results:\n- T1: L1\n- T3: L3\n- T4: L4\n- T5: L5\n", got)
	assert.NotContains(t, got, "T6")

	assert.Empty(t, Top([]Result{{Title: "only title"}}, 5))
	assert.Empty(t, Top(nil, 5))
}

func TestClient_SearchMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    `<html>`,
		"no results":  `{"search_metadata":{}}`,
		"api error":   `{"error":"Google hasn't returned any results for this query."}`,
		"wrong shape": `{"organic_results":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := serve(t, http.StatusOK, body)
			_, err := c.Search(context.Background(), "q")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestClient_SearchHTTPError(t *testing.T) {
	c, _ := serve(t, http.StatusUnauthorized, `{"error":"Invalid API key."}`)

	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "401")
}

func TestFormatTop(t *testing.T) {
	results := make([]Result, 7)
	for i := range results {
		results[i] = Result{Title: fmt.Sprintf("T%d", i+1), Link: fmt.Sprintf("L%d", i+1)}
	}

	got := FormatTop(results, 5)
	assert.Equal(t, "Top search results:\n- T1: L1\n- T2: L2\n- T3: L3\n- T4: L4\n- T5: L5\n", got)

	got = FormatTop(results[:2], 5)
	assert.Equal(t, "Top search results:\n- T1: L1\n- T2: L2\n", got)
}
