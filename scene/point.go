package scene

import "math"

// PointEncoding distinguishes the two on-wire stroke-sample layouts
// (spec §4.6, "Point v1 ↔ v2 conversion"). Both decode into the same
// Point; the encoding only affects how speed/width/direction/pressure
// are packed on the wire.
type PointEncoding uint8

const (
	PointEncodingV1 PointEncoding = 1
	PointEncodingV2 PointEncoding = 2
)

// V1PointSize and V2PointSize are the fixed byte sizes of one Point
// record in each encoding (spec §4.6: "Point size is 24 bytes (v1) or
// 14 bytes (v2)").
const (
	V1PointSize = 24
	V2PointSize = 14
)

// Point is a single stroke sample: its device-space location plus the
// pen telemetry captured at that sample. Speed/Width/Direction/Pressure
// are stored in their v2 (native integer) units regardless of which
// wire encoding produced the Point; DecodeV1Point/EncodeV1Point convert
// to and from the legacy v1 float encoding.
type Point struct {
	X, Y      float32
	Speed     uint16
	Width     uint16
	Direction uint8
	Pressure  uint8
}

const (
	speedWidthScale = 4.0
	directionScale  = 2 * math.Pi / 255.0
	pressureScale   = 255.0
)

// DecodeV1Point converts the raw v1 wire fields into a Point. v1 keeps
// all four telemetry fields as f32: speed and width as a quarter of
// their v2 values (multiplied by 4 here), direction as a radian angle,
// pressure as a 0..1 fraction.
func DecodeV1Point(x, y, speedRaw, widthRaw, directionRaw, pressureRaw float32) Point {
	return Point{
		X:         x,
		Y:         y,
		Speed:     uint16(math.Round(float64(speedRaw) * speedWidthScale)),
		Width:     uint16(math.Round(float64(widthRaw) * speedWidthScale)),
		Direction: uint8(math.Round(float64(directionRaw) / directionScale)),
		Pressure:  uint8(math.Round(float64(pressureRaw) * pressureScale)),
	}
}

// EncodeV1Point produces the raw stored v1 f32 fields for p, inverting
// DecodeV1Point.
func EncodeV1Point(p Point) (x, y, speedRaw, widthRaw, directionRaw, pressureRaw float32) {
	return p.X, p.Y,
		float32(p.Speed) / speedWidthScale,
		float32(p.Width) / speedWidthScale,
		float32(p.Direction) * directionScale,
		float32(p.Pressure) / pressureScale
}

// DecodeV2Point converts the raw v2 wire fields into a Point. v2 stores
// speed/width/direction/pressure natively, so this is a direct copy.
func DecodeV2Point(x, y float32, speed, width uint16, direction, pressure uint8) Point {
	return Point{X: x, Y: y, Speed: speed, Width: width, Direction: direction, Pressure: pressure}
}

// EncodeV2Point produces the raw stored v2 fields for p.
func EncodeV2Point(p Point) (x, y float32, speed, width uint16, direction, pressure uint8) {
	return p.X, p.Y, p.Speed, p.Width, p.Direction, p.Pressure
}
