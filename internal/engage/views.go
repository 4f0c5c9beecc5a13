package engage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/store"
)

// Device types recorded with page views.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var (
	mobileUA = regexp.MustCompile(`(?i)Mobile|Android|iPhone`)
	tabletUA = regexp.MustCompile(`(?i)Tablet|iPad`)
)

// DeviceType classifies a user agent. Mobile markers win over tablet markers.
func DeviceType(userAgent string) string {
	switch {
	case mobileUA.MatchString(userAgent):
		return DeviceMobile
	case tabletUA.MatchString(userAgent):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// Views records page visits.
type Views struct {
	deps Deps
}

// Record logs a visit. DeviceType is derived from UserAgent when empty.
// A duplicate visit is not an error.
func (v *Views) Record(ctx context.Context, pv model.PageView) error {
	if pv.PageURL == "" {
		return errors.New("page url is required")
	}
	if pv.DeviceType == "" {
		pv.DeviceType = DeviceType(pv.UserAgent)
	}

	_, err := v.deps.Store.Insert(ctx, CollPageViews, store.Record{
		"page_url":    pv.PageURL,
		"page_title":  pv.PageTitle,
		"referrer":    pv.Referrer,
		"user_agent":  pv.UserAgent,
		"device_type": pv.DeviceType,
	})
	if err != nil && !errors.Is(err, store.ErrUniqueness) {
		return fmt.Errorf("record page view: %w", err)
	}
	return nil
}

// Total returns the number of recorded visits.
func (v *Views) Total(ctx context.Context) (int64, error) {
	return v.deps.Store.Count(ctx, CollPageViews, nil)
}
