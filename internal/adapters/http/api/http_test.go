package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/nutriscore/internal/adapters/http/api"
	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/internal/domain/types"
	"github.com/okian/nutriscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

// Mock implementations for testing
type mockDeps struct {
	suggestions    []string
	suggestionsErr error

	analysis *model.Analysis
	err      error
	lastQ    model.FoodQuery

	lastImage       []byte
	lastContentType string

	history    []model.HistoryEntry
	entry      model.HistoryEntry
	foods      []model.FoodRank
	historyErr error
	lastLimit  int
}

func (m *mockDeps) Suggestions(context.Context) ([]string, error) {
	return m.suggestions, m.suggestionsErr
}

func (m *mockDeps) CalculateNutrition(_ context.Context, q model.FoodQuery) (*model.Analysis, error) {
	m.lastQ = q
	if m.err != nil {
		return nil, m.err
	}
	if err := q.Normalize().Validate(); err != nil {
		return nil, err
	}
	return m.analysis, nil
}

func (m *mockDeps) AnalyzeImage(_ context.Context, image []byte, contentType string) (*model.Analysis, error) {
	m.lastImage = image
	m.lastContentType = contentType
	if m.err != nil {
		return nil, m.err
	}
	return m.analysis, nil
}

func (m *mockDeps) ScoreRecord(ctx context.Context, rec scoring.Record) scoring.Report {
	return scoring.NewEngine(scoring.WithLogger(logger.Nop())).Evaluate(ctx, rec)
}

func (m *mockDeps) History(_ context.Context, limit int) ([]model.HistoryEntry, error) {
	m.lastLimit = limit
	return m.history, m.historyErr
}

func (m *mockDeps) HistoryEntry(_ context.Context, id string) (model.HistoryEntry, error) {
	if m.historyErr != nil {
		return model.HistoryEntry{}, m.historyErr
	}
	if id != m.entry.ID {
		return model.HistoryEntry{}, fmt.Errorf("history: %w", model.ErrNotFound)
	}
	return m.entry, nil
}

func (m *mockDeps) TopFoods(_ context.Context, limit int) ([]model.FoodRank, error) {
	m.lastLimit = limit
	return m.foods, m.historyErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorBody {
	var body types.ErrorBody
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func multipartBody(field, filename string, content []byte) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		So(err, ShouldBeNil)
		_, err = part.Write(content)
		So(err, ShouldBeNil)
	} else {
		So(mw.WriteField("note", "no image here"), ShouldBeNil)
	}
	So(mw.Close(), ShouldBeNil)
	return buf, mw.FormDataContentType()
}

func chickenAnalysis() *model.Analysis {
	return &model.Analysis{
		ID:          "a-1",
		FoodItem:    "chicken",
		Quantity:    100,
		Unit:        "grams",
		IsValidFood: true,
		HealthScore: scoring.HealthScore{Score: 7, Message: "Good nutritional value", Color: "#3b82f6"},
		Status:      model.StatusSuccess,
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDeps{suggestions: []string{"Poha"}})

		Convey("When the health endpoint is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the stats endpoint is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the provider stats are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When a route is called with the wrong method", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/calculate_nutrition", nil))

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When an unknown path is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/unknown", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestNutritionHandler_Suggestions(t *testing.T) {
	Convey("Given the suggestions endpoint", t, func() {
		deps := &mockDeps{suggestions: []string{"Poha", "Idli"}}
		mux := newMux(deps)

		Convey("When the model answers", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/get_food_suggestions", nil))

			Convey("Then the suggestions are wrapped", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"suggestions":["Poha","Idli"]}`)
			})
		})

		Convey("When the model fails", func() {
			deps.suggestionsErr = fmt.Errorf("boom: %w", model.ErrUpstream)
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/get_food_suggestions", nil))

			Convey("Then a suggestions error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.ErrorType, ShouldEqual, types.ErrorTypeSuggestions)
				So(body.Error, ShouldEqual, "Failed to fetch food suggestions")
				So(body.Status, ShouldEqual, "error")
			})
		})
	})
}

func TestNutritionHandler_Calculate(t *testing.T) {
	Convey("Given the calculate endpoint", t, func() {
		deps := &mockDeps{analysis: chickenAnalysis()}
		mux := newMux(deps)
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/calculate_nutrition", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			return serve(mux, req)
		}

		Convey("When a valid query is posted with a numeric quantity", func() {
			w := post(`{"food_item":"Chicken","quantity":100,"unit":"grams"}`)

			Convey("Then the analysis is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQ.Quantity, ShouldEqual, model.Quantity("100"))
				var a model.Analysis
				So(json.Unmarshal(w.Body.Bytes(), &a), ShouldBeNil)
				So(a.HealthScore.Score, ShouldEqual, 7)
				So(a.Status, ShouldEqual, "success")
			})
		})

		Convey("When the body is empty, null or an empty object", func() {
			for _, body := range []string{"", "  ", "null", "{}"} {
				w := post(body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "No data provided")
			}
		})

		Convey("When the body is not JSON", func() {
			w := post(`{"food_item":`)

			Convey("Then a validation error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body.ErrorType, ShouldEqual, types.ErrorTypeValidation)
				So(body.Error, ShouldEqual, "Invalid JSON body")
			})
		})

		Convey("When the query fails validation", func() {
			w := post(`{"food_item":"rice","quantity":"abc","unit":"cup"}`)

			Convey("Then the validation message is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "Invalid quantity value")
			})
		})

		Convey("When the unit is unknown", func() {
			w := post(`{"food_item":"rice","quantity":"1","unit":"bucket"}`)

			Convey("Then the unit is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "Invalid unit of measurement")
			})
		})

		Convey("When the model is unavailable", func() {
			deps.err = fmt.Errorf("language model: %w", model.ErrUpstream)
			w := post(`{"food_item":"rice","quantity":"1","unit":"cup"}`)

			Convey("Then 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				body := decodeError(w)
				So(body.ErrorType, ShouldEqual, types.ErrorTypeUpstream)
				So(body.Error, ShouldEqual, "Failed to get nutrition information from OpenAI")
			})
		})

		Convey("When something unexpected fails", func() {
			deps.err = errors.New("disk on fire")
			w := post(`{"food_item":"rice","quantity":"1","unit":"cup"}`)

			Convey("Then the cause is hidden", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.ErrorType, ShouldEqual, types.ErrorTypeServer)
				So(body.Error, ShouldEqual, "An unexpected error occurred")
			})
		})

		Convey("When the body exceeds the limit", func() {
			small := newMux(deps, api.WithMaxBodyBytes(16))
			req := httptest.NewRequest(http.MethodPost, "/calculate_nutrition",
				strings.NewReader(`{"food_item":"a very long food name","quantity":"1","unit":"cup"}`))
			w := serve(small, req)

			Convey("Then 413 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})
	})
}

func TestNutritionHandler_HealthScore(t *testing.T) {
	Convey("Given the direct scoring endpoint", t, func() {
		mux := newMux(&mockDeps{})

		Convey("When a nutrition record is posted", func() {
			body := `{"calories":"165kcal","protein":"31g","fat":{"total":"3.6g"},"carbohydrates":{"total":"0g"},"fiber":"0g","sodium":"74mg","is_recipe":false,"is_valid_food":true}`
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/health_score", strings.NewReader(body)))

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.ScoreResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, "success")
				So(resp.HealthScore.Score, ShouldEqual, 7.0)
				So(resp.HealthScore.Color, ShouldEqual, "#3b82f6")
			})
		})

		Convey("When the record says it is not food", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/health_score", strings.NewReader(`{"is_valid_food":false}`)))

			Convey("Then the invalid score is returned", func() {
				var resp types.ScoreResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.HealthScore.HealthScore, ShouldResemble, scoring.InvalidFoodScore())
			})
		})

		Convey("When nothing is posted", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/health_score", nil))

			Convey("Then no data is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "No data provided")
			})
		})
	})
}

func TestImageHandler_HandleAnalyze(t *testing.T) {
	Convey("Given the image endpoint", t, func() {
		deps := &mockDeps{analysis: chickenAnalysis()}
		mux := newMux(deps)
		upload := func(body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/analyze_image", body)
			req.Header.Set("Content-Type", contentType)
			return serve(mux, req)
		}

		Convey("When a PNG is uploaded", func() {
			body, ct := multipartBody("image", "meal.png", pngHeader)
			w := upload(body, ct)

			Convey("Then the sniffed type is passed on", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastContentType, ShouldEqual, "image/png")
				So(deps.lastImage, ShouldResemble, pngHeader)
			})
		})

		Convey("When a JPEG is uploaded", func() {
			body, ct := multipartBody("image", "meal.jpg", jpegHeader)
			w := upload(body, ct)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastContentType, ShouldEqual, "image/jpeg")
			})
		})

		Convey("When the image field is missing", func() {
			body, ct := multipartBody("", "", nil)
			w := upload(body, ct)

			Convey("Then no image is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "No image file provided")
			})
		})

		Convey("When the request is not multipart", func() {
			w := upload(bytes.NewBufferString(`{}`), "application/json")

			Convey("Then no image is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "No image file provided")
			})
		})

		Convey("When the file has no name", func() {
			body, ct := multipartBody("image", "", pngHeader)
			w := upload(body, ct)

			Convey("Then no selected file is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "No selected image file")
			})
		})

		Convey("When the file is not an image", func() {
			body, ct := multipartBody("image", "notes.txt", []byte("just some text"))
			w := upload(body, ct)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "Uploaded file is not an image")
				So(deps.lastImage, ShouldBeNil)
			})
		})

		Convey("When the upload exceeds the limit", func() {
			small := newMux(deps, api.WithMaxUploadBytes(64))
			body, ct := multipartBody("image", "big.png", append(pngHeader, bytes.Repeat([]byte{0}, 256)...))
			req := httptest.NewRequest(http.MethodPost, "/analyze_image", body)
			req.Header.Set("Content-Type", ct)
			w := serve(small, req)

			Convey("Then 413 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w).ErrorType, ShouldEqual, types.ErrorTypeTooLarge)
			})
		})

		Convey("When nothing is recognized in the photo", func() {
			deps.err = &model.ValidationError{Message: model.MsgNoFoodIdentified}
			body, ct := multipartBody("image", "meal.png", pngHeader)
			w := upload(body, ct)

			Convey("Then the validation message is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, model.MsgNoFoodIdentified)
			})
		})
	})
}

func TestHistoryHandler(t *testing.T) {
	Convey("Given the history endpoints", t, func() {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		deps := &mockDeps{
			history: []model.HistoryEntry{{ID: "a-1", FoodItem: "chicken", Score: 7, CreatedAt: at}},
			entry:   model.HistoryEntry{ID: "a-1", FoodItem: "chicken", Score: 7, CreatedAt: at},
			foods:   []model.FoodRank{{FoodItem: "chicken", BestScore: 7, Analyses: 1}},
		}
		mux := newMux(deps, api.WithMaxLimit(50), api.WithDefaultLimit(10))

		Convey("When history is listed without a limit", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/history", nil))

			Convey("Then the default limit is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 10)
				var body types.History
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(len(body.Entries), ShouldEqual, 1)
				So(body.Status, ShouldEqual, "success")
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"abc", "0", "-3", "51"} {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/history?limit="+q, nil))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Error, ShouldEqual, "Invalid limit")
			}
		})

		Convey("When history is empty", func() {
			deps.history = nil
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/history?limit=5", nil))

			Convey("Then an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When one entry is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/history/a-1", nil))

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var e model.HistoryEntry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.CreatedAt.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When an unknown entry is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/history/missing", nil))

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).ErrorType, ShouldEqual, types.ErrorTypeNotFound)
			})
		})

		Convey("When top foods are requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/top_foods?limit=3", nil))

			Convey("Then the ranking is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body types.TopFoods
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Foods, ShouldResemble, deps.foods)
				So(deps.lastLimit, ShouldEqual, 3)
			})
		})

		Convey("When history is not configured", func() {
			deps.historyErr = fmt.Errorf("analysis history: %w", model.ErrUnavailable)
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/top_foods", nil))

			Convey("Then 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w).ErrorType, ShouldEqual, types.ErrorTypeUnavailable)
			})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("cause")
		err := api.WrapKind("api.op", api.ErrNoImage, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrNoImage), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: no image file provided: cause")
		})

		Convey("Then Wrap keeps nil as nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.NewKind("api.op", api.ErrTooLarge).Error(), ShouldEqual, "api.op: upload too large")
		})
	})
}
