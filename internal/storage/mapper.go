package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mazen160/go-random"

	"psychscraper/internal/model"
	"psychscraper/internal/scrape"
	"psychscraper/internal/slug"
)

// Row is an ordered column/value pairing for one therapist record. Order is
// stable so INSERT statements can be generated from it.
type Row struct {
	cols []string
	vals []any
}

func (r *Row) Set(col string, val any) {
	for i, c := range r.cols {
		if c == col {
			r.vals[i] = val
			return
		}
	}
	r.cols = append(r.cols, col)
	r.vals = append(r.vals, val)
}

func (r *Row) Columns() []string { return r.cols }
func (r *Row) Values() []any     { return r.vals }

func (r *Row) Value(col string) any {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i]
		}
	}
	return nil
}

var cantonByID = map[int]string{
	1: "AG", 2: "AI", 3: "AR", 4: "BE", 5: "BL", 6: "BS",
	7: "FR", 8: "GE", 9: "GL", 10: "GR", 11: "JU", 12: "LU",
	13: "NE", 14: "NW", 15: "OW", 16: "SG", 17: "SH", 18: "SO",
	19: "SZ", 20: "TG", 21: "TI", 22: "UR", 23: "VD", 24: "VS",
	25: "ZG", 26: "ZH",
}

// CantonCode maps a numeric canton id to its two-letter code. Ids outside
// the known range produce an Unknown(n) sentinel so bad data stays visible.
func CantonCode(id int) string {
	if code, ok := cantonByID[id]; ok {
		return code
	}
	if id == 0 {
		return "Unknown"
	}
	return fmt.Sprintf("Unknown(%d)", id)
}

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateTherapistID builds a collision-resistant primary key: a fixed
// prefix, the trailing digits of the current unix-millis clock, and a
// random alphanumeric suffix.
func GenerateTherapistID() string {
	millis := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	suffix, err := random.String(12)
	if err != nil {
		suffix = strconv.FormatInt(time.Now().UnixNano(), 36)
		if len(suffix) > 12 {
			suffix = suffix[len(suffix)-12:]
		}
	}
	return "cmj" + "d" + millis + strings.ToLower(suffix)
}

func listJSON(p model.Profile, key string) any {
	items := p.List(key)
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return string(data)
}

func coord(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return nil
}

// MapProfile converts one merged profile into a full Therapist row. Every
// column is always set so INSERT and UPDATE statements stay aligned across
// records regardless of which fields the scrape recovered.
func MapProfile(p model.Profile, now time.Time) Row {
	var r Row

	firstName := strings.TrimSpace(p.FirstName())
	lastName := strings.TrimSpace(p.LastName())
	phone := strings.TrimSpace(p.Str("phone"))
	mobile := strings.TrimSpace(p.Str("mobile_phone"))
	email := strings.TrimSpace(p.Str("email"))
	city := strings.TrimSpace(p.Str("city"))
	online := strings.TrimSpace(p.Str("online_sessions"))
	practice := strings.TrimSpace(p.Str("practice_name"))

	// The url column is the replace-mode collision key, so the fallback
	// must be the full profile URL, not the bare slug.
	url := strings.TrimSpace(p.Str("url"))
	if url == "" && (firstName != "" || lastName != "") {
		url = scrape.ProfileURL(slug.ForName(firstName, lastName))
	}

	onlineAvail := "unavailable"
	offersOnline := false
	if online == "available" {
		onlineAvail = "available"
		offersOnline = true
	}

	specialization := practice
	if specialization == "" {
		specialization = "Psychology"
	}

	titles := p.List("fsp_titles")
	title1, title2 := "", ""
	if len(titles) > 0 {
		title1 = titles[0]
	}
	if len(titles) > 1 {
		title2 = titles[1]
	}

	var scrapedAt any
	if ts, ok := p.Float64("scraped_at"); ok && ts > 0 {
		scrapedAt = time.Unix(int64(ts), 0).UTC()
	}

	rawData := "{}"
	if data, err := json.Marshal(p); err == nil {
		rawData = string(data)
	}

	r.Set("id", GenerateTherapistID())
	r.Set("firstName", firstName)
	r.Set("lastName", lastName)
	r.Set("email", email)
	r.Set("phone", phone)
	r.Set("mobile", mobile)
	r.Set("fax", "")
	r.Set("website", strings.TrimSpace(p.Str("website")))
	r.Set("street", strings.TrimSpace(p.Str("address")))
	r.Set("zipCode", strings.TrimSpace(p.Str("zip")))
	r.Set("city", city)
	r.Set("citySearchValue", strings.ToLower(city))
	cantonID, _ := p.Int64("canton_id")
	r.Set("canton", CantonCode(int(cantonID)))
	r.Set("latitude", coord(p["latitude"]))
	r.Set("longitude", coord(p["longitude"]))
	r.Set("practiceName", practice)
	r.Set("specialization", specialization)
	r.Set("specializations", listJSON(p, "specialisations"))
	r.Set("services", listJSON(p, "offer"))
	r.Set("targetGroups", listJSON(p, "target_groups"))
	r.Set("languages", listJSON(p, "languages"))
	r.Set("billingOptions", listJSON(p, "billing"))
	r.Set("fspTitles", listJSON(p, "fsp_titles"))
	r.Set("professionalTitle1", title1)
	r.Set("professionalTitle2", title2)
	r.Set("aboutMe", strings.TrimSpace(p.Str("about_me")))
	r.Set("profileImageUrl", strings.TrimSpace(p.Str("profile_image")))
	r.Set("hasPicture", p.Str("profile_image") != "")
	r.Set("gender", "unknown")
	r.Set("role", "therapist")
	r.Set("showPhone", phone != "")
	r.Set("showMobile", mobile != "")
	r.Set("showFax", false)
	r.Set("offersPhoneCall", phone != "")
	r.Set("offersVideoCall", offersOnline)
	r.Set("offersOnlineTherapy", offersOnline)
	r.Set("onlineAvailability", onlineAvail)
	r.Set("availabilityText", strings.TrimSpace(p.Str("availability_text")))
	r.Set("onlineBookingConsultation", false)
	r.Set("contactVerified", false)
	r.Set("contactDataQuality", "verified_generic")
	r.Set("insuranceBasic", true)
	r.Set("insuranceSupplementary", true)
	r.Set("insuranceSelf", true)
	r.Set("dataQualityScore", 9)
	r.Set("profileCompleteness", 95)
	r.Set("dataCompleteness", 95)
	r.Set("trafficLight", 1)
	r.Set("url", url)
	r.Set("dataSource", "manual")
	id, _ := p.ID()
	r.Set("externalId", strconv.FormatInt(id, 10))
	r.Set("psychologie_ch_id", strconv.FormatInt(id, 10))
	r.Set("psychologie_ch_user_id", strconv.FormatInt(p.UserID(), 10))
	r.Set("scrapedAt", scrapedAt)
	r.Set("rawData", rawData)
	r.Set("createdAt", now.UTC())
	r.Set("updatedAt", now.UTC())

	return r
}
