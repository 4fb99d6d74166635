package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeFillsMissingFields(t *testing.T) {
	base := Profile{
		"id":    int64(42),
		"phone": "",
		"email": nil,
		"city":  "Bern",
	}
	incoming := Profile{
		"phone": "+41791234567",
		"email": "a@example.ch",
		"city":  "Zurich",
	}

	Merge(base, incoming)

	require.Equal(t, "+41791234567", base.Str("phone"))
	require.Equal(t, "a@example.ch", base.Str("email"))
	require.Equal(t, "Bern", base.Str("city"), "truthy base values win")
}

func TestMergeFalsySemantics(t *testing.T) {
	base := Profile{
		"a": false,
		"b": float64(0),
		"c": []any{},
		"d": map[string]any{},
	}
	incoming := Profile{
		"a": true,
		"b": float64(7),
		"c": []any{"x"},
		"d": map[string]any{"k": "v"},
	}

	Merge(base, incoming)

	require.Equal(t, true, base["a"])
	require.Equal(t, float64(7), base["b"])
	require.Equal(t, []string{"x"}, base.List("c"))
	require.NotEmpty(t, base["d"])
}

func TestMergeListUnion(t *testing.T) {
	base := Profile{
		"offer":           []any{"Coaching", "Therapy"},
		"languages":       []any{"German"},
		"target_groups":   []any{},
		"billing":         nil,
		"specialisations": []any{"Anxiety"},
		"fsp_titles":      []any{"FSP"},
	}
	incoming := Profile{
		"offer":           []string{"Therapy", "Supervision"},
		"languages":       []string{"French", "German"},
		"target_groups":   []string{"Adults"},
		"billing":         []string{"Cash"},
		"specialisations": []string{"Anxiety", "Depression"},
		"fsp_titles":      []string{"FSP"},
	}

	Merge(base, incoming)

	require.Equal(t, []string{"Coaching", "Therapy", "Supervision"}, base.List("offer"))
	require.Equal(t, []string{"German", "French"}, base.List("languages"))
	require.Equal(t, []string{"Adults"}, base.List("target_groups"))
	require.Equal(t, []string{"Cash"}, base.List("billing"))
	require.Equal(t, []string{"Anxiety", "Depression"}, base.List("specialisations"))
	require.Equal(t, []string{"FSP"}, base.List("fsp_titles"))
}

func TestProfileIdentityAccessors(t *testing.T) {
	p := Profile{
		"id": float64(570737),
		"user": map[string]any{
			"id":        float64(99),
			"firstname": "Jean-François",
			"lastname":  "Briefer",
		},
	}

	id, ok := p.ID()
	require.True(t, ok)
	require.Equal(t, int64(570737), id)
	require.Equal(t, int64(99), p.UserID())
	require.Equal(t, "Jean-François", p.FirstName())
	require.Equal(t, "Briefer", p.LastName())
	require.False(t, p.Scraped())

	p["scraped_at"] = int64(1700000000)
	require.True(t, p.Scraped())
}

func TestCloneIsolatesTopLevel(t *testing.T) {
	p := Profile{"phone": ""}
	c := p.Clone()
	c["phone"] = "+41791234567"
	require.Equal(t, "", p.Str("phone"))
}
