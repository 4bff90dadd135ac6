package optimizer

import (
	"time"

	"github.com/kosarica/deal-planner/internal/types"
)

// AssignDay picks the purchase day for an item: the planned day when it is
// inside the window and not after expiry, otherwise the window start. It
// reports false when the item expires before the window starts.
func AssignDay(window types.ShoppingWindow, expiration time.Time, planned *time.Time) (time.Time, bool) {
	start := types.Day(window.Start)
	last := types.Day(window.End)
	expires := types.Day(expiration)
	if expires.Before(start) {
		return time.Time{}, false
	}
	if expires.Before(last) {
		last = expires
	}
	if planned != nil {
		day := types.Day(*planned)
		if !day.Before(start) && !day.After(last) {
			return day, true
		}
	}
	return start, true
}
