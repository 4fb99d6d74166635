package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"psychscraper/internal/model"
)

func TestCantonCode(t *testing.T) {
	require.Equal(t, "AG", CantonCode(1))
	require.Equal(t, "ZH", CantonCode(26))
	require.Equal(t, "TI", CantonCode(21))
	require.Equal(t, "Unknown", CantonCode(0))
	require.Equal(t, "Unknown(999)", CantonCode(999))
}

func TestGenerateTherapistID(t *testing.T) {
	id := GenerateTherapistID()
	require.True(t, strings.HasPrefix(id, "cmjd"), "id %q", id)
	require.Len(t, id, len("cmjd")+6+12)
	require.Equal(t, strings.ToLower(id), id)

	other := GenerateTherapistID()
	require.NotEqual(t, id, other)
}

func TestMapProfileEmptyIsTotal(t *testing.T) {
	row := MapProfile(model.Profile{}, time.Now())

	cols := row.Columns()
	require.NotEmpty(t, cols)
	require.Len(t, row.Values(), len(cols))

	require.Equal(t, "Unknown", row.Value("canton"))
	require.Equal(t, "Psychology", row.Value("specialization"))
	require.Equal(t, "unknown", row.Value("gender"))
	require.Equal(t, "therapist", row.Value("role"))
	require.Equal(t, "manual", row.Value("dataSource"))
	require.Equal(t, "unavailable", row.Value("onlineAvailability"))
	require.Equal(t, false, row.Value("showPhone"))
	require.Equal(t, false, row.Value("offersPhoneCall"))
	require.Equal(t, false, row.Value("hasPicture"))
	require.Nil(t, row.Value("latitude"))
	require.Nil(t, row.Value("services"))
	require.Nil(t, row.Value("scrapedAt"))
	require.Equal(t, 9, row.Value("dataQualityScore"))
	require.Equal(t, 95, row.Value("profileCompleteness"))
	require.Equal(t, 1, row.Value("trafficLight"))
	require.Equal(t, true, row.Value("insuranceBasic"))
	require.Equal(t, true, row.Value("insuranceSupplementary"))
	require.Equal(t, true, row.Value("insuranceSelf"))
	require.Equal(t, "", row.Value("professionalTitle1"))
	require.Equal(t, "", row.Value("professionalTitle2"))
}

func TestMapProfilePopulated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := model.Profile{
		"id": float64(570737),
		"user": map[string]any{
			"id":        float64(88),
			"firstname": "Jean-François",
			"lastname":  "Briefer",
		},
		"phone":           "+41791234567",
		"mobile_phone":    "+41761112233",
		"city":            "Genève",
		"canton_id":       float64(8),
		"latitude":        "46.2044",
		"longitude":       float64(6.1432),
		"online_sessions": "available",
		"practice_name":   "Praxis am See",
		"profile_image":   "https://example.ch/p.jpg",
		"offer":           []any{"Coaching", "Therapy"},
		"fsp_titles": []any{
			"Fachpsychologin für Psychotherapie FSP",
			"Eidgenössisch anerkannte Psychotherapeutin",
			"Fachpsychologin für Neuropsychologie FSP",
		},
		"scraped_at": float64(1756700000),
	}

	row := MapProfile(p, now)

	require.Equal(t, "Jean-François", row.Value("firstName"))
	require.Equal(t, "Briefer", row.Value("lastName"))
	require.Equal(t, "GE", row.Value("canton"))
	require.Equal(t, "genève", row.Value("citySearchValue"))
	require.Equal(t, 46.2044, row.Value("latitude"))
	require.Equal(t, 6.1432, row.Value("longitude"))
	require.Equal(t, true, row.Value("showPhone"))
	require.Equal(t, true, row.Value("showMobile"))
	require.Equal(t, true, row.Value("offersPhoneCall"))
	require.Equal(t, true, row.Value("offersVideoCall"))
	require.Equal(t, true, row.Value("offersOnlineTherapy"))
	require.Equal(t, "available", row.Value("onlineAvailability"))
	require.Equal(t, true, row.Value("hasPicture"))
	require.Equal(t, "Praxis am See", row.Value("practiceName"))
	require.Equal(t, "Praxis am See", row.Value("specialization"))
	require.Equal(t, "https://www.psychologie.ch/en/psyfinder/jean-francois-briefer", row.Value("url"))
	// The first two titles feed the professional title columns; the rest
	// stay in the JSON column only.
	require.Equal(t, "Fachpsychologin für Psychotherapie FSP", row.Value("professionalTitle1"))
	require.Equal(t, "Eidgenössisch anerkannte Psychotherapeutin", row.Value("professionalTitle2"))
	require.Equal(t, "570737", row.Value("psychologie_ch_id"))
	require.Equal(t, "570737", row.Value("externalId"))
	require.Equal(t, "88", row.Value("psychologie_ch_user_id"))
	require.Equal(t, `["Coaching","Therapy"]`, row.Value("services"))
	require.Equal(t, time.Unix(1756700000, 0).UTC(), row.Value("scrapedAt"))
	require.Equal(t, now, row.Value("createdAt"))
}

func TestMapProfileBadCoordinates(t *testing.T) {
	p := model.Profile{
		"latitude":  "not-a-number",
		"longitude": true,
	}
	row := MapProfile(p, time.Now())
	require.Nil(t, row.Value("latitude"))
	require.Nil(t, row.Value("longitude"))
}

func TestRowSetOverwrites(t *testing.T) {
	var r Row
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("a", 3)
	require.Equal(t, []string{"a", "b"}, r.Columns())
	require.Equal(t, 3, r.Value("a"))
}
