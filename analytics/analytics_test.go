package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBrowser(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Browser
	}{
		{"chrome desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", Chrome},
		{"chrome ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.6099.119 Mobile/15E148 Safari/604.1", Chrome},
		{"chromium", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chromium/119.0 Safari/537.36", Chrome},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", Firefox},
		{"firefox ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) FxiOS/120.0 Mobile/15E148 Safari/605.1.15", Firefox},
		{"safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", Safari},
		{"edge carries chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0", Chrome},
		{"opera carries chrome", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Safari/537.36 OPR/105.0", Chrome},
		{"bare opera token", "Mozilla/5.0 OPR/105.0", Opera},
		{"bare edge token", "Mozilla/5.0 Edg/120.0", Edge},
		{"case insensitive", "FIREFOX/1", Firefox},
		{"curl", "curl/8.4.0", Unknown},
		{"empty", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBrowser(tt.ua))
		})
	}
}

func TestClassifyBrowserDeterministic(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	first := ClassifyBrowser(ua)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, ClassifyBrowser(ua))
	}
}

func TestParseBrowser(t *testing.T) {
	assert.Equal(t, Chrome, ParseBrowser("Chrome"))
	assert.Equal(t, Firefox, ParseBrowser("firefox"))
	assert.Equal(t, Edge, ParseBrowser(" EDGE "))
	assert.Equal(t, Unknown, ParseBrowser("Netscape"))
	assert.Equal(t, Unknown, ParseBrowser(""))
}

func TestIsBot(t *testing.T) {
	assert.True(t, IsBot("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
	assert.True(t, IsBot("HeadlessChrome/120.0"))
	assert.False(t, IsBot("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"))
}

func TestCountryFromHeader(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, UnknownCountry, CountryFromHeader(h))

	h.Set("CF-IPCountry", "id")
	assert.Equal(t, "ID", CountryFromHeader(h))

	h.Set("CF-IPCountry", "XX")
	h.Set("X-Country-Code", "SG")
	assert.Equal(t, "SG", CountryFromHeader(h))

	h = http.Header{}
	h.Set("X-Country-Code", "Indonesia")
	assert.Equal(t, UnknownCountry, CountryFromHeader(h))
}

func TestParseReportType(t *testing.T) {
	for _, rt := range ReportTypes {
		got, err := ParseReportType(string(rt))
		require.NoError(t, err)
		assert.Equal(t, rt, got)
	}
	_, err := ParseReportType("bounceRate")
	assert.ErrorIs(t, err, ErrUnknownReport)
	_, err = ParseReportType("")
	assert.ErrorIs(t, err, ErrUnknownReport)
}

type nilReader struct{}

func (nilReader) TotalVisitors(context.Context) (int, error) { return 0, nil }
func (nilReader) AverageSessionTime(context.Context) (int, error) { return 0, nil }
func (nilReader) VisitorsByCountry(context.Context) ([]CountryCount, error) { return nil, nil }
func (nilReader) VisitorsByBrowser(context.Context) ([]BrowserCount, error) { return nil, nil }
func (nilReader) PageViews(context.Context) ([]PageCount, error) { return nil, nil }

func TestQueryEmptyListsEncodeAsArrays(t *testing.T) {
	ctx := context.Background()
	want := map[ReportType]string{
		ReportTotalVisitors:      `{"totalVisitors":0}`,
		ReportAverageSessionTime: `{"averageTime":0}`,
		ReportVisitorsByCountry:  `[]`,
		ReportVisitorsByBrowser:  `[]`,
		ReportPageViews:          `[]`,
	}
	for rt, js := range want {
		data, err := Query(ctx, nilReader{}, rt)
		require.NoError(t, err)
		b, err := json.Marshal(data)
		require.NoError(t, err)
		assert.JSONEq(t, js, string(b), "report %s", rt)
	}
	_, err := Query(ctx, nilReader{}, ReportType("nope"))
	assert.ErrorIs(t, err, ErrUnknownReport)
}
