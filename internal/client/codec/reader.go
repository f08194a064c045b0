package codec

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
)

// reader pulls typed fields out of a document and remembers the first
// failure, so decoders can read every field unconditionally.
type reader struct {
	c   models.Collection
	doc Document
	err error
}

func (r *reader) fail(key, problem string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s.%s: %s", common.ErrMalformedRecord, r.c, key, problem)
	}
}

func (r *reader) value(key string) (any, bool) {
	v, ok := r.doc[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *reader) str(key string) string {
	v, ok := r.value(key)
	if !ok {
		r.fail(key, "missing")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, fmt.Sprintf("want string, got %T", v))
	}
	return s
}

func (r *reader) optStr(key string) *string {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, fmt.Sprintf("want string, got %T", v))
		return nil
	}
	return &s
}

func (r *reader) num(key string) float64 {
	v, ok := r.value(key)
	if !ok {
		r.fail(key, "missing")
		return 0
	}
	return r.asNumber(key, v)
}

func (r *reader) numOrZero(key string) float64 {
	v, ok := r.value(key)
	if !ok {
		return 0
	}
	return r.asNumber(key, v)
}

func (r *reader) optNum(key string) *float64 {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	f := r.asNumber(key, v)
	if r.err != nil {
		return nil
	}
	return &f
}

func (r *reader) millis(key string) int64 {
	v, ok := r.value(key)
	if !ok {
		r.fail(key, "missing")
		return 0
	}
	return r.asMillis(key, v)
}

func (r *reader) millisOrZero(key string) int64 {
	v, ok := r.value(key)
	if !ok {
		return 0
	}
	return r.asMillis(key, v)
}

func (r *reader) goals(key string, required bool) (models.Goals, bool) {
	v, ok := r.value(key)
	if !ok {
		if required {
			r.fail(key, "missing")
		}
		return models.Goals{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.fail(key, fmt.Sprintf("want object, got %T", v))
		return models.Goals{}, false
	}
	sub := &reader{c: r.c, doc: m}
	g := models.Goals{
		ProteinG: sub.num("protein_g"),
		CarbsG:   sub.num("carbs_g"),
		FatG:     sub.num("fat_g"),
		Kcal:     sub.num("kcal"),
		WaterML:  sub.num("water_ml"),
	}
	if sub.err != nil {
		r.fail(key, sub.err.Error())
		return models.Goals{}, false
	}
	return g, true
}

func (r *reader) asNumber(key string, v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		r.fail(key, fmt.Sprintf("want number, got %T", v))
		return 0
	}
	return f
}

func (r *reader) asMillis(key string, v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f := r.asNumber(key, v)
	return int64(math.Round(f))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
