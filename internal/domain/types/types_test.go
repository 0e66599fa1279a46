package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/nutriscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorBody(t *testing.T) {
	Convey("Given an error body", t, func() {
		body := types.NewErrorBody(types.ErrorTypeValidation, "Food item is required")

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(body)

			Convey("Then it uses the client field names", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, `{"error":"Food item is required","status":"error","error_type":"validation_error"}`)
			})
		})
	})
}

func TestEnvelopes(t *testing.T) {
	Convey("Given the list envelopes", t, func() {
		Convey("When suggestions are encoded", func() {
			raw, err := json.Marshal(types.Suggestions{Suggestions: []string{"Poha"}})

			Convey("Then the list sits under suggestions", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, `{"suggestions":["Poha"]}`)
			})
		})

		Convey("When an empty history is encoded", func() {
			raw, err := json.Marshal(types.History{Status: types.StatusSuccess})

			Convey("Then entries is null and status is success", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, `{"entries":null,"status":"success"}`)
			})
		})
	})
}
