package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/nutriscore/internal/adapters/http/api"
	service "github.com/okian/nutriscore/internal/app"
	"github.com/okian/nutriscore/internal/cli"
	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const chickenBreast = `{"calories":"165kcal","protein":"31g","fat":{"total":"3.6g"},"carbohydrates":{"total":"0g"},"fiber":"0g","sodium":"74mg","is_recipe":false,"is_valid_food":true}`

func run(stdin string, args ...string) (string, error) {
	root := cli.NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// newServer runs the real API on a service without a language model.
func newServer() *httptest.Server {
	svc := service.New(service.WithLogger(logger.Nop()))
	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

const proteinHeavyConfig = `
nutrient_ranges:
  protein:
    min: 50
    max: 100
    weight: 5
`

// proteinHeavyRanges mirrors proteinHeavyConfig.
func proteinHeavyRanges() *scoring.RangeTable {
	ranges := scoring.DefaultRangeMap()
	ranges[scoring.Protein] = scoring.Range{Min: 50, Max: 100, Weight: 5}
	t, err := scoring.NewRangeTable(ranges)
	if err != nil {
		panic(err)
	}
	return t
}

// newTunedServer runs the real API with custom nutrient ranges.
func newTunedServer() *httptest.Server {
	engine := scoring.NewEngine(scoring.WithRanges(proteinHeavyRanges()), scoring.WithLogger(logger.Nop()))
	svc := service.New(service.WithEngine(engine), service.WithLogger(logger.Nop()))
	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestScoreCommand(t *testing.T) {
	Convey("Given the score command", t, func() {
		Convey("When a record is piped on stdin", func() {
			out, err := run(chickenBreast, "score")

			Convey("Then the health score is printed", func() {
				So(err, ShouldBeNil)
				var hs scoring.HealthScore
				So(json.Unmarshal([]byte(out), &hs), ShouldBeNil)
				So(hs, ShouldResemble, scoring.HealthScore{Score: 7.0, Message: "Good nutritional value", Color: "#3b82f6"})
			})
		})

		Convey("When a file is given with a breakdown", func() {
			path := filepath.Join(t.TempDir(), "chicken.json")
			So(os.WriteFile(path, []byte(chickenBreast), 0o600), ShouldBeNil)
			out, err := run("", "score", "--breakdown", path)

			Convey("Then the full report is printed", func() {
				So(err, ShouldBeNil)
				var rep scoring.Report
				So(json.Unmarshal([]byte(out), &rep), ShouldBeNil)
				So(rep.Score, ShouldEqual, 7.0)
				So(rep.Outcome, ShouldEqual, scoring.OutcomeScored)
				So(rep.Contributions, ShouldNotBeEmpty)
			})
		})

		Convey("When a server config with custom ranges is given", func() {
			out, err := run(chickenBreast, "score", "--config", writeConfig(t, proteinHeavyConfig))

			Convey("Then the record is scored with those ranges", func() {
				So(err, ShouldBeNil)
				var rec scoring.Record
				So(json.Unmarshal([]byte(chickenBreast), &rec), ShouldBeNil)
				want := scoring.NewEngine(scoring.WithRanges(proteinHeavyRanges()), scoring.WithLogger(logger.Nop())).
					CalculateHealthScore(context.Background(), rec)

				var hs scoring.HealthScore
				So(json.Unmarshal([]byte(out), &hs), ShouldBeNil)
				So(hs, ShouldResemble, want)
				So(hs.Score, ShouldNotEqual, 7.0)
			})
		})

		Convey("When the config file does not exist", func() {
			_, err := run(chickenBreast, "score", "--config", filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the input is not JSON", func() {
			_, err := run("not json", "score", "-")

			Convey("Then decoding fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "decode record")
			})
		})

		Convey("When the file does not exist", func() {
			_, err := run("", "score", filepath.Join(t.TempDir(), "missing.json"))

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given a server that answers analyses", t, func() {
		var got model.FoodQuery
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(model.Analysis{FoodItem: "chicken", Quantity: 100, Unit: "grams", Status: "success"})
		}))
		defer srv.Close()

		Convey("When a food is analyzed", func() {
			out, err := run("", "analyze", "chicken", "--url", srv.URL, "-q", "100", "-u", "grams")

			Convey("Then the query is sent and the analysis printed", func() {
				So(err, ShouldBeNil)
				So(got.FoodItem, ShouldEqual, "chicken")
				So(got.Quantity, ShouldEqual, model.Quantity("100"))
				So(out, ShouldContainSubstring, `"status": "success"`)
			})
		})

		Convey("When the unit is invalid", func() {
			_, err := run("", "analyze", "chicken", "--url", srv.URL, "-u", "bucket")

			Convey("Then it fails before calling the server", func() {
				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(got.FoodItem, ShouldEqual, "")
			})
		})
	})

	Convey("Given a server without a language model", t, func() {
		srv := newServer()
		defer srv.Close()

		Convey("When a food is analyzed", func() {
			_, err := run("", "analyze", "rice", "--url", srv.URL)

			Convey("Then the error envelope is surfaced", func() {
				var apiErr *cli.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				So(apiErr.Body.ErrorType, ShouldEqual, "openai_api_error")
				So(errors.Is(err, cli.ErrRequestFailed), ShouldBeTrue)
			})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newServer()
		defer srv.Close()

		Convey("When the load command runs", func() {
			out, err := run("", "load", "--url", srv.URL, "-n", "40", "-w", "4", "--progress", "0")

			Convey("Then every score matches the local engine", func() {
				So(err, ShouldBeNil)
				var stats cli.LoadStats
				So(json.Unmarshal([]byte(out), &stats), ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 40)
				So(stats.Succeeded, ShouldEqual, 40)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Mismatched, ShouldEqual, 0)
			})
		})

		Convey("When RunLoad is given no records", func() {
			c := cli.NewClient(srv.URL, 0)
			_, err := cli.RunLoad(context.Background(), c, scoring.NewEngine(), nil, cli.LoadConfig{Requests: 1}, logger.Nop())

			Convey("Then it refuses to run", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a server running custom nutrient ranges", t, func() {
		srv := newTunedServer()
		defer srv.Close()

		Convey("When the load command runs with the reference ranges", func() {
			out, err := run("", "load", "--url", srv.URL, "-n", "10", "-w", "2", "--progress", "0")

			Convey("Then the differing scores are reported as mismatches", func() {
				So(errors.Is(err, cli.ErrLoadFailures), ShouldBeTrue)
				var stats cli.LoadStats
				So(json.Unmarshal([]byte(out), &stats), ShouldBeNil)
				So(stats.Mismatched, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the load command runs with the server's config", func() {
			out, err := run("", "load", "--url", srv.URL, "-n", "10", "-w", "2", "--progress", "0",
				"--config", writeConfig(t, proteinHeavyConfig))

			Convey("Then every score matches", func() {
				So(err, ShouldBeNil)
				var stats cli.LoadStats
				So(json.Unmarshal([]byte(out), &stats), ShouldBeNil)
				So(stats.Succeeded, ShouldEqual, 10)
				So(stats.Mismatched, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server that is down", t, func() {
		srv := newServer()
		url := srv.URL
		srv.Close()

		Convey("When the load command runs", func() {
			_, err := run("", "load", "--url", url, "-n", "1")

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})
}
