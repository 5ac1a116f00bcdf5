package places

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type fakeMaps struct {
	geocode     []maps.GeocodingResult
	geocodeErr  error
	search      maps.PlacesSearchResponse
	searchErr   error
	details     map[string]maps.PlaceDetailsResult
	lastRequest *maps.TextSearchRequest
}

func (f *fakeMaps) Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	return f.geocode, f.geocodeErr
}

func (f *fakeMaps) TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error) {
	f.lastRequest = r
	return f.search, f.searchErr
}

func (f *fakeMaps) PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error) {
	d, ok := f.details[r.PlaceID]
	if !ok {
		return maps.PlaceDetailsResult{}, errors.New("not found")
	}
	return d, nil
}

type fakeSummarizer struct {
	summary string
}

func (f *fakeSummarizer) GenerateText(ctx context.Context, system, user string) (string, error) {
	return f.summary, nil
}

func newTestSearcher(api *fakeMaps) *Searcher {
	return &Searcher{api: api, sum: &fakeSummarizer{summary: "Great pasta, friendly staff."}}
}

func TestSearchFormatsResults(t *testing.T) {
	api := &fakeMaps{
		search: maps.PlacesSearchResponse{
			Results: []maps.PlacesSearchResult{{PlaceID: "p1", Name: "Trattoria"}},
		},
		details: map[string]maps.PlaceDetailsResult{
			"p1": {
				Name:             "Trattoria",
				Rating:           4.5,
				UserRatingsTotal: 120,
				FormattedAddress: "12 Via Roma",
				PriceLevel:       2,
				Reviews:          []maps.PlaceReview{{AuthorName: "Ana", Rating: 5, Text: "Amazing pasta"}},
			},
		},
	}

	out, err := newTestSearcher(api).Search(context.Background(), "pasta", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Here are my recommendations:")
	assert.Contains(t, out, "**Trattoria**")
	assert.Contains(t, out, "4.5")
	assert.Contains(t, out, "(120 reviews)")
	assert.Contains(t, out, "📍 12 Via Roma")
	assert.Contains(t, out, "💬 Great pasta, friendly staff.")
	assert.Contains(t, out, "Those are all the restaurants I found.")
}

func TestSearchBiasesByLocation(t *testing.T) {
	api := &fakeMaps{
		geocode: []maps.GeocodingResult{{
			Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 37.77, Lng: -122.42}},
		}},
		search: maps.PlacesSearchResponse{},
	}

	out, err := newTestSearcher(api).Search(context.Background(), "ramen", "San Francisco, CA")
	require.NoError(t, err)
	assert.Contains(t, out, "couldn't find any restaurants")

	require.NotNil(t, api.lastRequest.Location)
	assert.InDelta(t, 37.77, api.lastRequest.Location.Lat, 0.001)
	assert.EqualValues(t, searchRadiusMtrs, api.lastRequest.Radius)
}

func TestSearchGeocodeFailureStillSearches(t *testing.T) {
	api := &fakeMaps{
		geocodeErr: errors.New("quota"),
		search:     maps.PlacesSearchResponse{},
	}

	out, err := newTestSearcher(api).Search(context.Background(), "tacos", "Nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "couldn't find any restaurants")
	assert.Nil(t, api.lastRequest.Location)
}

func TestSearchError(t *testing.T) {
	api := &fakeMaps{searchErr: errors.New("backend down")}
	_, err := newTestSearcher(api).Search(context.Background(), "sushi", "")
	require.Error(t, err)
}
