package poi

import (
	"testing"

	"github.com/matryer/is"
)

func TestCoordinateKey_roundsToSixDecimalPlaces(t *testing.T) {
	is := is.New(t)
	is.Equal(CoordinateKey(45.5200001, -122.6800009), CoordinateKey(45.52, -122.68))
}

func TestCoordinateKey_distinguishesDifferentPlaces(t *testing.T) {
	is := is.New(t)
	is.True(CoordinateKey(45.52, -122.68) != CoordinateKey(45.53, -122.68))
}

func TestCombinedPOI_CoordinateKeyMatchesPackageFunc(t *testing.T) {
	is := is.New(t)
	p := CombinedPOI{Lat: 45.52, Lon: -122.68}
	is.Equal(p.CoordinateKey(), CoordinateKey(45.52, -122.68))
}

func TestRoundCoordinate_snapsBitDistinctFloatsToTheSameValue(t *testing.T) {
	is := is.New(t)
	lat1, lon1 := RoundCoordinate(45.52000001, -122.68000009)
	lat2, lon2 := RoundCoordinate(45.5200000999, -122.6800000999)
	is.Equal(lat1, lat2)
	is.Equal(lon1, lon2)
	is.Equal(lat1, 45.52)
	is.Equal(lon1, -122.68)
}

func TestRoundCoordinate_preservesDistinctPlaces(t *testing.T) {
	is := is.New(t)
	lat, lon := RoundCoordinate(45.53, -122.68)
	is.Equal(lat, 45.53)
	is.Equal(lon, -122.68)
}
