package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFixtureYAML = `
addresses:
  - street: Pitt St
    houseNumber: "123"
    postcode: "2000"
    city: Sydney
    lat: "-33.8688"
    lon: "151.2093"
    id: upstream-1
  - street: George St
    houseNumber: "123"
    postcode: "2000"
    city: Sydney
    lat: -33.8700
    lon: 151.2070
  - street: Damrak
    houseNumber: "1"
    postcode: 1012 LG
    city: Amsterdam
  - city: Nowhere
`

func TestParseFixture(t *testing.T) {
	t.Parallel()

	f, err := ParseFixture([]byte(testFixtureYAML))
	require.NoError(t, err)
	require.Len(t, f.Addresses, 4)

	assert.Equal(t, "Pitt St", *f.Addresses[0].Street)
	assert.Equal(t, "upstream-1", *f.Addresses[0].ID)
	assert.Equal(t, "-33.8700", *f.Addresses[1].Lat)
	assert.Nil(t, f.Addresses[2].Lat)
	assert.Nil(t, f.Addresses[3].Postcode)
}

func TestParseFixture_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseFixture([]byte("addresses: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixture: parse yaml")
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "addresses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFixtureYAML), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Addresses, 4)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFixture_Match(t *testing.T) {
	t.Parallel()

	f, err := ParseFixture([]byte(testFixtureYAML))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"exact", Request{Postcode: "2000", HouseNumber: "123"}, 2},
		{"postcode spacing and case", Request{Postcode: "1012lg", HouseNumber: "1"}, 1},
		{"full width postcode", Request{Postcode: "１０１２ ＬＧ", HouseNumber: "1"}, 1},
		{"house number exact only", Request{Postcode: "2000", HouseNumber: "123a"}, 0},
		{"unknown postcode", Request{Postcode: "9999", HouseNumber: "1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, f.Match(tt.req), tt.want)
		})
	}
}

func TestFixtureHandler(t *testing.T) {
	f, err := ParseFixture([]byte(testFixtureYAML))
	require.NoError(t, err)
	h := NewFixtureHandler(f)

	t.Run("match", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, AddressesPath+"?postcode=2000&streetnumber=123", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, StatusOK, resp.Status)
		assert.Len(t, resp.Details, 2)
	})

	t.Run("no match", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, AddressesPath+"?postcode=0000&streetnumber=1", nil))

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "No results found", resp.ErrorMessage)
	})

	t.Run("missing params", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, AddressesPath+"?postcode=2000", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ErrorMessage)
	})
}

func TestFixtureHandler_ThroughClient(t *testing.T) {
	f, err := ParseFixture([]byte(testFixtureYAML))
	require.NoError(t, err)

	srv := httptest.NewServer(NewFixtureHandler(f))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Lookup(context.Background(), Request{Postcode: "2000", HouseNumber: "123"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	require.Len(t, resp.Details, 2)
	assert.Equal(t, "-33.8688", *resp.Details[0].Lat)

	resp, err = newTestClient(srv.URL).Lookup(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.HTTPStatus)
}
