package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"timetrack/internal/core"
)

// DateResolver turns what a user types for a date into YYYY-MM-DD. Besides
// the canonical form it understands English phrases such as "yesterday" or
// "last friday", relative to a clock.
type DateResolver struct {
	parser *when.Parser
	now    func() time.Time
}

func NewDateResolver(now func() time.Time) *DateResolver {
	if now == nil {
		now = time.Now
	}
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return &DateResolver{parser: p, now: now}
}

// Resolve returns s unchanged when it already is a valid date.
func (r *DateResolver) Resolve(s string) (string, error) {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d.String(), nil
	}
	res, err := r.parser.Parse(s, r.now())
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidDate, s, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.Today(res.Time).String(), nil
}
