package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/build-directory/internal/models"
)

func newUpstream(t *testing.T, totalPages int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/professionals", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		items := []models.Professional{}
		if page <= totalPages {
			items = append(items, models.Professional{
				ID:          int64(page),
				CompanyName: "Sahyadri Builders",
				Profession:  models.ProfessionContractor,
				Location:    "Kamshet",
				Rating:      4.5,
				ReviewCount: 12,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items":      items,
			"totalPages": totalPages,
			"totalCount": totalPages,
		})
	})
	mux.HandleFunc("/api/professionals/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Professional{
			ID:         7,
			FullName:   "Anita Kulkarni",
			Profession: models.ProfessionArchitect,
			Location:   "Lonavla",
			Rating:     4.8,
			Experience: 11,
		})
	})
	mux.HandleFunc("/api/professionals/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Review{{ID: 1, ProfessionalID: 7, UserFullName: "Ravi", Rating: 5, Content: "Great work"}})
	})
	mux.HandleFunc("/api/professionals/7/projects", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Project{{ID: 3, ProfessionalID: 7, Title: "Hill Villa", PropertyType: "villa"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd(t *testing.T) {
	srv := newUpstream(t, 3)

	t.Run("prints listing and canonical query", func(t *testing.T) {
		out, err := execute(t, "search", "--url", srv.URL, "--catalog-dir", t.TempDir(),
			"--type", "contractor", "--location", "kamshet", "--page", "2")
		require.NoError(t, err)

		assert.Contains(t, out, "Sahyadri Builders")
		assert.Contains(t, out, "Page 2 of 3")
		assert.Contains(t, out, "query: profession=contractor&location=kamshet&page=2")
	})

	t.Run("out of range page is clamped", func(t *testing.T) {
		out, err := execute(t, "search", "--url", srv.URL, "--catalog-dir", t.TempDir(),
			"--query", "location=kamshet&page=9")
		require.NoError(t, err)

		assert.Contains(t, out, "Page 3 of 3")
		assert.Contains(t, out, "query: location=kamshet&page=3")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "search", "--url", srv.URL, "--catalog-dir", t.TempDir(), "--json")
		require.NoError(t, err)

		var view struct {
			Count int    `json:"count"`
			Query string `json:"query"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, 3, view.Count)
		assert.Equal(t, "", view.Query)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := execute(t, "search", "--url", srv.URL, "--budget", "cheap")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid budget")
	})
}

func TestSearchCmd_FetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	out, err := execute(t, "search", "--url", srv.URL, "--catalog-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, "We couldn't load professionals.")
}

func TestProfileCmd(t *testing.T) {
	srv := newUpstream(t, 1)

	out, err := execute(t, "profile", "7", "--url", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "Anita Kulkarni (#7)")
	assert.Contains(t, out, "Experience: 11 years")
	assert.Contains(t, out, "Hill Villa, villa")
	assert.Contains(t, out, "Ravi: Great work")

	_, err = execute(t, "profile", "abc", "--url", srv.URL)
	assert.Error(t, err)
}
