package meshweather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStation_Valid(t *testing.T) {
	st, err := NewStation("Home", "http://kc0abc-wx.local.mesh/?mode=data")
	require.NoError(t, err)

	assert.Equal(t, "Home", st.Name())
	assert.Equal(t, "http://kc0abc-wx.local.mesh/?mode=data", st.URL())
	assert.Equal(t, 10*time.Second, st.Timeout())
	assert.Equal(t, 60*time.Second, st.InitialInterval())
	assert.Equal(t, CadenceReported, st.Cadence())
	assert.Empty(t, st.Labels())
}

func TestNewStation_DefaultURL(t *testing.T) {
	st, err := NewStation("Home", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, st.URL())
}

func TestNewStation_EmptyName(t *testing.T) {
	_, err := NewStation("", DefaultURL)
	assert.Error(t, err)
}

func TestNewStation_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "meshweather.local.mesh/?mode=data"},
		{"ftp scheme", "ftp://meshweather.local.mesh/"},
		{"no host", "http:///?mode=data"},
		{"malformed", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStation("Home", tt.url)
			assert.Error(t, err)
		})
	}
}

func TestWithLabels(t *testing.T) {
	st, err := NewStation("Home", "", WithLabels("site", "roof", "mount", "mast"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"site": "roof", "mount": "mast"}, st.Labels())
}

func TestWithLabels_OddArgs(t *testing.T) {
	_, err := NewStation("Home", "", WithLabels("site"))
	assert.Error(t, err)
}

func TestWithLabels_Immutability(t *testing.T) {
	st, err := NewStation("Home", "", WithLabels("site", "roof"))
	require.NoError(t, err)

	labels := st.Labels()
	labels["site"] = "barn"
	labels["extra"] = "value"

	assert.Equal(t, map[string]string{"site": "roof"}, st.Labels())
}

func TestWithTimeout(t *testing.T) {
	st, err := NewStation("Home", "", WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, st.Timeout())

	for _, d := range []time.Duration{0, -time.Second} {
		_, err := NewStation("Home", "", WithTimeout(d))
		assert.Error(t, err, "timeout %v", d)
	}
}

func TestWithInitialInterval(t *testing.T) {
	tests := []struct {
		name    string
		d       time.Duration
		wantErr bool
	}{
		{"minimum", 60 * time.Second, false},
		{"fifteen minutes", 15 * time.Minute, false},
		{"maximum", 24 * time.Hour, false},
		{"below floor", 59 * time.Second, true},
		{"zero", 0, true},
		{"above maximum", 25 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewStation("Home", "", WithInitialInterval(tt.d))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.d, st.InitialInterval())
		})
	}
}

func TestWithCadence(t *testing.T) {
	st, err := NewStation("Home", "", WithCadence(CadenceAligned))
	require.NoError(t, err)
	assert.Equal(t, CadenceAligned, st.Cadence())

	_, err = NewStation("Home", "", WithCadence(Cadence(7)))
	assert.Error(t, err)
}

func TestParseCadence(t *testing.T) {
	c, err := ParseCadence("aligned")
	require.NoError(t, err)
	assert.Equal(t, CadenceAligned, c)

	c, err = ParseCadence("")
	require.NoError(t, err)
	assert.Equal(t, CadenceReported, c)

	_, err = ParseCadence("hourly")
	assert.Error(t, err)
}

func TestStation_PollerInfo(t *testing.T) {
	st, err := NewStation("Home", "",
		WithLabels("site", "roof"),
		WithTimeout(5*time.Second),
		WithInitialInterval(2*time.Minute),
		WithCadence(CadenceAligned),
	)
	require.NoError(t, err)

	info := st.pollerInfo()
	assert.Equal(t, "Home", info.Name)
	assert.Equal(t, DefaultURL, info.URL)
	assert.Equal(t, 5*time.Second, info.Timeout)
	assert.Equal(t, 2*time.Minute, info.InitialInterval)
	assert.Equal(t, CadenceAligned, info.Policy)

	// the poller gets its own copy of the labels
	info.Labels["site"] = "barn"
	assert.Equal(t, "roof", st.Labels()["site"])
}
