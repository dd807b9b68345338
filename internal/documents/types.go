package documents

import (
	"encoding/json"
	"fmt"
)

const (
	DefaultLimit = 10
	DefaultSkip  = 0
)

// SortKey is one [field, direction] pair; direction is 1 (ascending) or -1 (descending).
type SortKey struct {
	Field     string
	Direction int
}

func (s SortKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Field, s.Direction})
}

func (s *SortKey) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sort entry must be a [field, direction] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("sort entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Field); err != nil {
		return fmt.Errorf("sort field must be a string: %w", err)
	}
	if err := json.Unmarshal(pair[1], &s.Direction); err != nil {
		return fmt.Errorf("sort direction must be an integer: %w", err)
	}
	if s.Direction != 1 && s.Direction != -1 {
		return fmt.Errorf("sort direction must be 1 or -1, got %d", s.Direction)
	}
	return nil
}

// DefaultSort orders by _id ascending.
func DefaultSort() []SortKey {
	return []SortKey{{Field: "_id", Direction: 1}}
}

type InsertRequest struct {
	Documents []map[string]any `json:"documents"`
}

type InsertResponse struct {
	InsertedIDs []string `json:"inserted_ids"`
}

type FindRequest struct {
	Filter map[string]any `json:"filter"`
	Limit  *int64         `binding:"omitempty,min=1" json:"limit"`
	Skip   *int64         `binding:"omitempty,min=0" json:"skip"`
	Sort   []SortKey      `json:"sort"`
}

// FindQuery is a FindRequest with defaults applied.
type FindQuery struct {
	Filter map[string]any
	Limit  int64
	Skip   int64
	Sort   []SortKey
}

type UpdateRequest struct {
	Filter map[string]any `json:"filter"`
	Update map[string]any `json:"update"`
	Multi  bool           `json:"multi"`
	Upsert bool           `json:"upsert"`
}

type UpdateResponse struct {
	MatchedCount  int64 `json:"matched_count"`
	ModifiedCount int64 `json:"modified_count"`
}

type DeleteRequest struct {
	Filter map[string]any `json:"filter"`
	Multi  bool           `json:"multi"`
}

type DeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// Query applies defaults to the request.
func (r *FindRequest) Query() FindQuery {
	q := FindQuery{
		Filter: r.Filter,
		Limit:  DefaultLimit,
		Skip:   DefaultSkip,
		Sort:   r.Sort,
	}
	if q.Filter == nil {
		q.Filter = map[string]any{}
	}
	if r.Limit != nil {
		q.Limit = *r.Limit
	}
	if r.Skip != nil {
		q.Skip = *r.Skip
	}
	if r.Sort == nil {
		q.Sort = DefaultSort()
	}
	return q
}
