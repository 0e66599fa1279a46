package scoring_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/nutriscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMagnitude(t *testing.T) {
	Convey("Given nutrient strings with units", t, func() {
		cases := map[string]float64{
			"18.7g":   18.7,
			"2300mg":  2300,
			"0g":      0,
			"143kcal": 143,
			"12":      12,
			" 4.5 g ": 4.5,
			"~30 mcg": 30,
		}
		for in, want := range cases {
			got, err := scoring.ParseMagnitude(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
	})

	Convey("Given strings without a usable number", t, func() {
		for _, in := range []string{"", "g", "none", "..", "trace", "1.2.3"} {
			got, err := scoring.ParseMagnitude(in)
			So(got, ShouldEqual, 0)
			So(errors.Is(err, scoring.ErrUnparsable), ShouldBeTrue)
		}
	})
}

func TestExtractValue(t *testing.T) {
	Convey("Given a scalar entry", t, func() {
		v, err := scoring.ExtractValue(scoring.Scalar("31g"))
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 31)
	})

	Convey("Given a composite entry", t, func() {
		Convey("When it has a total part", func() {
			v, err := scoring.ExtractValue(scoring.Composite(map[string]string{
				"total":     "3.6g",
				"saturated": "1g",
			}))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 3.6)
		})

		Convey("When the total part is missing", func() {
			v, err := scoring.ExtractValue(scoring.Composite(map[string]string{"sugar": "4g"}))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})
	})

	Convey("Given a malformed entry", t, func() {
		var v scoring.Value
		So(json.Unmarshal([]byte(`[1,2]`), &v), ShouldBeNil)
		So(v.Kind(), ShouldEqual, scoring.KindMalformed)

		got, err := scoring.ExtractValue(v)
		So(got, ShouldEqual, 0)
		So(errors.Is(err, scoring.ErrUnparsable), ShouldBeTrue)
	})
}
