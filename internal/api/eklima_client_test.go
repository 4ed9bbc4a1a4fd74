package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"metobs/internal/config"
	"metobs/internal/models"
)

const envelopeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:getMetDataResponse xmlns:ns2="http://no/met/metdata/service">
      <return>%s</return>
    </ns2:getMetDataResponse>
  </soap:Body>
</soap:Envelope>`

const twoObservations = `<timeStamp>
  <item>
    <from>2015-11-10T00:00:00.000Z</from>
    <location><item><id>18700</id><weatherElement>
      <item><id>TA</id><quality>0</quality><value>5.2</value></item>
    </weatherElement></item></location>
  </item>
  <item>
    <from>2015-11-11T00:00:00.000Z</from>
    <location><item><id>18700</id><weatherElement>
      <item><id>TA</id><quality>0</quality><value>-99999</value></item>
    </weatherElement></item></location>
  </item>
</timeStamp>`

func envelope(payload string) string {
	return fmt.Sprintf(envelopeTemplate, payload)
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewEklimaClient(t *testing.T) {
	client := NewEklimaClient()
	if client == nil {
		t.Fatal("NewEklimaClient() returned nil")
	}

	if client.client == nil {
		t.Error("EklimaClient.client should not be nil")
	}

	if client.baseURL != DefaultBaseURL {
		t.Errorf("EklimaClient.baseURL = %v, want %v", client.baseURL, DefaultBaseURL)
	}

	if client.breaker != nil {
		t.Error("EklimaClient.breaker should be nil unless requested")
	}
}

func TestBuildURL(t *testing.T) {
	client := NewEklimaClient()

	tests := []struct {
		name   string
		params QueryParams
		want   string
	}{
		{
			name: "single station single hour",
			params: QueryParams{
				TimeSerieTypeID: "2",
				Stations:        []string{"18700"},
				Elements:        []string{"TA", "TAX"},
				From:            date("2015-11-10"),
				To:              date("2015-11-13"),
				Hours:           []int{0},
			},
			want: "http://eklima.met.no/metdata/MetDataService?invoke=getMetData&timeserietypeid=2&format=&from=2015-11-10&to=2015-11-13&stations=18700&elements=TA,TAX&hours=0&months=&username=",
		},
		{
			name: "all hours and selected months",
			params: QueryParams{
				TimeSerieTypeID: "2",
				Stations:        []string{"18700", "68860"},
				Elements:        []string{"TA"},
				From:            date("2014-01-01"),
				To:              date("2014-12-31"),
				Months:          []int{6, 7},
			},
			want: "http://eklima.met.no/metdata/MetDataService?invoke=getMetData&timeserietypeid=2&format=&from=2014-01-01&to=2014-12-31&stations=18700,68860&elements=TA&hours=0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23&months=6,7&username=",
		},
		{
			name: "codes are trimmed",
			params: QueryParams{
				TimeSerieTypeID: "2",
				Stations:        []string{" 18700"},
				Elements:        []string{"TA", " TAX"},
				From:            date("2015-11-10"),
				To:              date("2015-11-10"),
				Hours:           []int{6, 18},
			},
			want: "http://eklima.met.no/metdata/MetDataService?invoke=getMetData&timeserietypeid=2&format=&from=2015-11-10&to=2015-11-10&stations=18700&elements=TA,TAX&hours=6,18&months=&username=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.BuildURL(tt.params)
			if got != tt.want {
				t.Errorf("BuildURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchObservations_UnsupportedSeriesType(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewEklimaClient(WithBaseURL(srv.URL))
	_, err := client.FetchObservations(context.Background(), QueryParams{
		TimeSerieTypeID: "0",
		Stations:        []string{"18700"},
		Elements:        []string{"TA"},
		From:            date("2015-01-01"),
		To:              date("2015-01-02"),
	})

	if !errors.Is(err, models.ErrInvalidQuery) {
		t.Fatalf("FetchObservations() error = %v, want ErrInvalidQuery", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no request to be made, got %d", calls)
	}
}

func TestFetchObservations_ExpandsHours(t *testing.T) {
	var gotHours string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHours = r.URL.Query().Get("hours")
		fmt.Fprint(w, envelope(twoObservations))
	}))
	defer srv.Close()

	client := NewEklimaClient(WithBaseURL(srv.URL))
	obs, err := client.FetchObservations(context.Background(), QueryParams{
		TimeSerieTypeID: "2",
		Stations:        []string{"18700"},
		Elements:        []string{"TA"},
		From:            date("2015-11-10"),
		To:              date("2015-11-11"),
	})
	if err != nil {
		t.Fatalf("FetchObservations() error = %v", err)
	}

	if len(obs) != 2 {
		t.Errorf("FetchObservations() returned %d observations, want 2", len(obs))
	}

	want := "0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23"
	if gotHours != want {
		t.Errorf("hours = %q, want %q", gotHours, want)
	}
}

func TestFetchObservations_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewEklimaClient(WithBaseURL(srv.URL))
	_, err := client.FetchObservations(context.Background(), QueryParams{
		TimeSerieTypeID: "2",
		Stations:        []string{"18700"},
		Elements:        []string{"TA"},
		From:            date("2015-11-10"),
		To:              date("2015-11-11"),
	})

	var statusErr *models.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("FetchObservations() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestFetchObservations_CircuitBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewEklimaClient(
		WithBaseURL(srv.URL),
		WithCircuitBreaker(BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute}),
	)
	params := QueryParams{
		TimeSerieTypeID: "2",
		Stations:        []string{"18700"},
		Elements:        []string{"TA"},
		From:            date("2015-11-10"),
		To:              date("2015-11-11"),
	}

	for i := 0; i < 2; i++ {
		if _, err := client.FetchObservations(context.Background(), params); !errors.Is(err, models.ErrServiceStatus) {
			t.Fatalf("call %d: error = %v, want ErrServiceStatus", i, err)
		}
	}

	_, err := client.FetchObservations(context.Background(), params)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantErr   error
		wantMsg   string
	}{
		{
			name:      "observations",
			body:      envelope(twoObservations),
			wantCount: 2,
		},
		{
			name:      "empty data element",
			body:      envelope("<timeStamp/>"),
			wantCount: 0,
		},
		{
			name:      "no data found",
			body:      envelope("<error><message>No data found</message></error>"),
			wantCount: 0,
		},
		{
			name:    "service error",
			body:    envelope("<error><message>Error: unknown station 0</message></error>"),
			wantErr: models.ErrInvalidQuery,
			wantMsg: "Error: unknown station 0",
		},
		{
			name:    "unknown payload",
			body:    envelope("<somethingElse/>"),
			wantErr: models.ErrUnknownResponseShape,
		},
		{
			name:    "malformed xml",
			body:    "<soap:Envelope><unclosed>",
			wantErr: models.ErrXMLParsing,
		},
		{
			name:    "shallow envelope",
			body:    "<Envelope><Body/></Envelope>",
			wantErr: models.ErrXMLParsing,
		},
		{
			name:    "empty return",
			body:    envelope(""),
			wantErr: models.ErrXMLParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := ParseResponse([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseResponse() error = %v, want %v", err, tt.wantErr)
				}
				if tt.wantMsg != "" {
					var qe *models.QueryError
					if !errors.As(err, &qe) || qe.Message != tt.wantMsg {
						t.Errorf("QueryError message = %v, want %q", err, tt.wantMsg)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse() unexpected error: %v", err)
			}
			if len(obs) != tt.wantCount {
				t.Errorf("ParseResponse() returned %d observations, want %d", len(obs), tt.wantCount)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&models.QueryError{Message: "x"}, "invalid_query"},
		{&models.StatusError{StatusCode: 500}, "status_error"},
		{fmt.Errorf("%w: bad", models.ErrXMLParsing), "xml_error"},
		{models.ErrUnknownResponseShape, "unknown_shape"},
		{errors.New("dial tcp: refused"), "transport_error"},
	}

	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewEklimaClientFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Eklima.BaseURL = "http://localhost:1234/MetDataService"
	cfg.Eklima.Timeout = 5 * time.Second

	c := NewEklimaClientFromConfig(cfg, nil)
	if c.baseURL != cfg.Eklima.BaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, cfg.Eklima.BaseURL)
	}
	if c.client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.client.Timeout)
	}
	if c.breaker != nil {
		t.Error("circuit breaker should be off without max_failures")
	}

	cfg.Eklima.CircuitBreaker.MaxFailures = 3
	cfg.Eklima.CircuitBreaker.OpenTimeout = time.Minute
	if c := NewEklimaClientFromConfig(cfg, nil); c.breaker == nil {
		t.Error("circuit breaker not installed")
	}
}
