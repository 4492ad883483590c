package posts

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-blog-server/internal/errors"
)

const (
	columnID     = "id"
	columnUserID = "user_id"
	opEqual      = "eq."
)

// reservedParams are query parameters that are not row filters.
var reservedParams = map[string]struct{}{
	"select": {},
	"order":  {},
}

// ParseFilter reads equality predicates in the form column=eq.value.
// Only id and user_id can be filtered.
func ParseFilter(query url.Values) (Filter, error) {
	var filter Filter
	for key, values := range query {
		if _, ok := reservedParams[key]; ok {
			continue
		}
		if len(values) != 1 || !strings.HasPrefix(values[0], opEqual) {
			return Filter{}, fmt.Errorf("%s: only a single eq. predicate is supported: %w", key, errors.ErrInvalidFilter)
		}
		value := strings.TrimPrefix(values[0], opEqual)

		switch key {
		case columnID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Filter{}, fmt.Errorf("id must be an integer: %w", errors.ErrInvalidFilter)
			}
			filter.ID = &id
		case columnUserID:
			userID := value
			filter.UserID = &userID
		default:
			return Filter{}, fmt.Errorf("unknown column %q: %w", key, errors.ErrInvalidFilter)
		}
	}
	return filter, nil
}

// Encode renders the filter as query parameters understood by ParseFilter.
func (f Filter) Encode() url.Values {
	query := url.Values{}
	if f.ID != nil {
		query.Set(columnID, opEqual+strconv.FormatInt(*f.ID, 10))
	}
	if f.UserID != nil {
		query.Set(columnUserID, opEqual+*f.UserID)
	}
	return query
}
