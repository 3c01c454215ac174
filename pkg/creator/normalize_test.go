package creator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCharacters_HeterogeneousShapes(t *testing.T) {
	raw := `[
		{"id":"p1","name":" Alice ","createdAt":"2025-01-02T03:04:05Z","interactionCount":120,
		 "hashtags":["#Romance","romance","Fantasy"],"isLongDescriptionPublic":false},
		{"plotId":"p2","name":"Bob","createdDate":1735689600000,"interactionCountWithRegen":50,
		 "interactionCount":40,"originalInteractionCount":30,"tags":["Horror"],"unlimitedAllowed":true,
		 "ranking":{"trending":3,"rankDelta":-2,"isNew":true}}
	]`

	chars, err := DecodeCharacters([]byte(raw))
	require.NoError(t, err)
	require.Len(t, chars, 2)

	want := []*Character{
		{
			ID:                    "p1",
			Name:                  "Alice",
			CreatedAt:             time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			InteractionCount:      120,
			Hashtags:              []string{"Romance", "Fantasy"},
			LongDescriptionPublic: false,
		},
		{
			ID:                       "p2",
			Name:                     "Bob",
			CreatedAt:                time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			InteractionCount:         50,
			OriginalInteractionCount: 30,
			Hashtags:                 []string{"Horror"},
			LongDescriptionPublic:    true,
			UnlimitedAllowed:         true,
			Ranking:                  &Ranking{TrendingRank: 3, RankDelta: -2, IsNew: true},
		},
	}
	if diff := cmp.Diff(want, chars); diff != "" {
		t.Errorf("normalized characters mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCharacters_Wrapped(t *testing.T) {
	chars, err := DecodeCharacters([]byte(`{"plots":[{"id":"a"}],"nextCursor":"x"}`))
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "a", chars[0].ID)
	assert.NotNil(t, chars[0].Hashtags)
	assert.Empty(t, chars[0].Hashtags)
}

func TestDecodeCharacters_Empty(t *testing.T) {
	for _, in := range []string{"", "null", "[]", "{}"} {
		chars, err := DecodeCharacters([]byte(in))
		require.NoError(t, err, in)
		assert.Empty(t, chars, in)
	}
}

func TestDecodeCharacters_Invalid(t *testing.T) {
	_, err := DecodeCharacters([]byte(`[{"id":`))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"rfc3339", `"2024-06-01T10:00:00Z"`, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), true},
		{"date only", `"2024-06-01"`, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"epoch seconds", `1717236000`, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), true},
		{"epoch millis quoted", `"1717236000000"`, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), true},
		{"null", `null`, time.Time{}, false},
		{"garbage", `"yesterday"`, time.Time{}, false},
		{"zero", `0`, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp([]byte(tt.in))
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeStats_MissingAndNegative(t *testing.T) {
	neg := int64(-5)
	followers := int64(10)
	s := NormalizeStats(&RawStats{PlotInteractionCount: &neg, FollowerCount: &followers})
	assert.Equal(t, int64(0), s.PlotInteractionCount)
	assert.Equal(t, int64(10), s.FollowerCount)
	assert.Equal(t, int64(0), s.VoicePlayCount)

	assert.Equal(t, &Stats{}, NormalizeStats(nil))
}

func TestNormalizeProfile(t *testing.T) {
	p := NormalizeProfile(&RawProfile{UserID: "u-1", Username: "@maker", ImageURL: "https://img/x.png"})
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "maker", p.Handle)
	assert.Equal(t, "https://img/x.png", p.ImageURL)
}

func TestCharacterInteractions(t *testing.T) {
	c := &Character{InteractionCount: 100, OriginalInteractionCount: 70}
	assert.Equal(t, int64(100), c.Interactions(InteractionsWithRegen))
	assert.Equal(t, int64(70), c.Interactions(InteractionsOriginal))

	c.OriginalInteractionCount = 0
	assert.Equal(t, int64(100), c.Interactions(InteractionsOriginal))

	var nilChar *Character
	assert.Equal(t, int64(0), nilChar.Interactions(InteractionsWithRegen))
}

func TestCreatedWithin(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	chars := []*Character{
		{ID: "old", CreatedAt: now.AddDate(0, 0, -200)},
		{ID: "recent", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "edge", CreatedAt: now.AddDate(0, 0, -180)},
		{ID: "undated"},
		nil,
	}
	got := CreatedWithin(chars, now, 180*24*time.Hour)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"recent", "edge"}, ids)
}

func TestSumInteractions(t *testing.T) {
	assert.Equal(t, int64(0), SumInteractions(nil))
	assert.Equal(t, int64(30), SumInteractions([]*Character{{InteractionCount: 10}, nil, {InteractionCount: 20}}))
}

func TestParseInteractionMode(t *testing.T) {
	assert.Equal(t, InteractionsOriginal, ParseInteractionMode("original"))
	assert.Equal(t, InteractionsOriginal, ParseInteractionMode(" Original "))
	assert.Equal(t, InteractionsWithRegen, ParseInteractionMode("regen"))
	assert.Equal(t, InteractionsWithRegen, ParseInteractionMode(""))
	assert.Equal(t, InteractionsWithRegen, ParseInteractionMode("bogus"))
}

func TestWithInteractions(t *testing.T) {
	chars := []*Character{
		{ID: "a", InteractionCount: 100, OriginalInteractionCount: 70},
		nil,
		{ID: "b", InteractionCount: 40},
	}

	same := WithInteractions(chars, InteractionsWithRegen)
	assert.Len(t, same, 3)

	got := WithInteractions(chars, InteractionsOriginal)
	require.Len(t, got, 2)
	assert.Equal(t, int64(70), got[0].InteractionCount)
	assert.Equal(t, int64(40), got[1].InteractionCount)
	assert.Equal(t, int64(100), chars[0].InteractionCount, "input must not change")
	assert.Equal(t, int64(110), SumInteractions(got))
}
