package field

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LatLong is a geographic coordinate.
//
// Input: subfields "lat" and "long".
// Slots: content = latitude, content1 = longitude.
type LatLong struct{}

func (LatLong) Name() string { return LatLongTypeName }

func (LatLong) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"latitude", "longitude"}}
}

func (LatLong) Validate(_ Definition, in Input) (Value, []error) {
	rawLat, rawLong := in.Get(SubLat), in.Get(SubLong)
	if rawLat == "" && rawLong == "" {
		return Value{Blank: true}, nil
	}
	var errs []error
	lat, err := parseFinite(rawLat)
	if err != nil || lat < -90 || lat > 90 {
		errs = append(errs, ErrInvalidLatitude)
	}
	long, err := parseFinite(rawLong)
	if err != nil || long < -180 || long > 180 {
		errs = append(errs, ErrInvalidLongitude)
	}
	if len(errs) > 0 {
		return Value{}, errs
	}
	return Value{Lat: lat, Long: long}, nil
}

func (LatLong) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(strconv.FormatFloat(v.Lat, 'f', -1, 64), strconv.FormatFloat(v.Long, 'f', -1, 64))
}

func (LatLong) FromStorage(_ Definition, s Slots) Value {
	lat, _ := strconv.ParseFloat(s.Get(SlotContent), 64)
	long, _ := strconv.ParseFloat(s.Get(SlotContent1), 64)
	return Value{Lat: lat, Long: long}
}

func (LatLong) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil
	}
	return Any{contains(SlotContent, criterion), contains(SlotContent1, criterion)}, nil
}

func (LatLong) TextPredicate(_ Definition, term string) Expr {
	return Any{contains(SlotContent, term), contains(SlotContent1, term)}
}

func (LatLong) Render(_ context.Context, _ Definition, v Value, _ RenderContext) string {
	ns, ew := "N", "E"
	if v.Lat < 0 {
		ns = "S"
	}
	if v.Long < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%s°%s %s°%s",
		strconv.FormatFloat(math.Abs(v.Lat), 'f', 4, 64), ns,
		strconv.FormatFloat(math.Abs(v.Long), 'f', 4, 64), ew)
}

func (LatLong) ExportText(_ Definition, v Value) string {
	return strconv.FormatFloat(v.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(v.Long, 'f', -1, 64)
}
