package ntfy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasa-client/kasa"
)

func TestStateChanged(t *testing.T) {
	var gotPath, gotBody, gotTags string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTags = r.Header.Get("Tags")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	n := New("my-topic").WithServer(srv.URL + "/")
	require.NoError(t, n.StateChanged("living_room/floor_lamp", kasa.PowerOn))

	assert.Equal(t, "/my-topic", gotPath)
	assert.Equal(t, "electric_plug", gotTags)
	assert.Equal(t, "Floor Lamp in Living Room is ON", gotBody)
}

func TestStateChangedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New("my-topic").WithServer(srv.URL).StateChanged("kettle", kasa.PowerOff)
	assert.Error(t, err)
}
