package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MonthLayout formats the month label of aggregates.
const MonthLayout = "2006-01"

type (
	// MonthTotal is the hours total of a single month.
	MonthTotal struct {
		Month string
		Hours float64
	}

	// MonthlyHours maps month label to total hours, in delivery order.
	MonthlyHours []MonthTotal

	// WeekTotal is the hours total of a single week within a month.
	WeekTotal struct {
		Week  string
		Hours float64
	}

	// MonthWeeks groups the weekly totals of one month.
	MonthWeeks struct {
		Month string
		Weeks []WeekTotal
	}

	// WeeklyHours maps month label to week label to total hours, in delivery
	// order at both levels.
	WeeklyHours []MonthWeeks
)

// WeekOfMonth numbers weeks by day ranges: days 1-7 are week 1, 8-14 week 2
// and so on up to week 5.
func WeekOfMonth(d Date) int {
	return (d.Day()-1)/7 + 1
}

// WeekLabel is the aggregate key of a week within its month.
func WeekLabel(week int) string {
	return fmt.Sprintf("week%d", week)
}

// Summarize computes monthly and weekly totals, ordered chronologically.
func Summarize(events []Event) (MonthlyHours, WeeklyHours) {
	type weekKey struct {
		month string
		week  int
	}
	monthTotals := map[string]float64{}
	weekTotals := map[weekKey]float64{}
	for _, e := range events {
		month := e.Date.Format(MonthLayout)
		monthTotals[month] += e.Hours
		weekTotals[weekKey{month, WeekOfMonth(e.Date)}] += e.Hours
	}

	months := make([]string, 0, len(monthTotals))
	for m := range monthTotals {
		months = append(months, m)
	}
	// YYYY-MM sorts chronologically as a string.
	sort.Strings(months)

	monthly := make(MonthlyHours, 0, len(months))
	weekly := make(WeeklyHours, 0, len(months))
	for _, m := range months {
		monthly = append(monthly, MonthTotal{Month: m, Hours: monthTotals[m]})
		group := MonthWeeks{Month: m}
		for w := 1; w <= 5; w++ {
			if h, ok := weekTotals[weekKey{m, w}]; ok {
				group.Weeks = append(group.Weeks, WeekTotal{Week: WeekLabel(w), Hours: h})
			}
		}
		weekly = append(weekly, group)
	}
	return monthly, weekly
}

func (m MonthlyHours) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, row.Month, row.Hours); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *MonthlyHours) UnmarshalJSON(b []byte) error {
	out := MonthlyHours{}
	err := decodeObject(b, func(key string, raw json.RawMessage) error {
		var h float64
		if err := json.Unmarshal(raw, &h); err != nil {
			return fmt.Errorf("month %q: %w", key, err)
		}
		out = append(out, MonthTotal{Month: key, Hours: h})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.Month)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for j, week := range group.Weeks {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeMember(&buf, week.Week, week.Hours); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (w *WeeklyHours) UnmarshalJSON(b []byte) error {
	out := WeeklyHours{}
	err := decodeObject(b, func(month string, raw json.RawMessage) error {
		group := MonthWeeks{Month: month, Weeks: []WeekTotal{}}
		err := decodeObject(raw, func(week string, v json.RawMessage) error {
			var h float64
			if err := json.Unmarshal(v, &h); err != nil {
				return fmt.Errorf("month %q week %q: %w", month, week, err)
			}
			group.Weeks = append(group.Weeks, WeekTotal{Week: week, Hours: h})
			return nil
		})
		if err != nil {
			return err
		}
		out = append(out, group)
		return nil
	})
	if err != nil {
		return err
	}
	*w = out
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value float64) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// decodeObject walks the members of a JSON object in document order. A JSON
// null is treated as an empty object.
func decodeObject(b []byte, member func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if err := member(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
