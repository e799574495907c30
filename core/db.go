package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy builds orderings from field names; a leading "-" means descending.
func OrderBy(fields ...string) []DBOrdering {
	ords := make([]DBOrdering, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

// FilterOrderings keeps the orderings whose field is allowed.
func FilterOrderings(ords []DBOrdering, allowed ...string) []DBOrdering {
	filtered := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		for _, field := range allowed {
			if ord.Field == field {
				filtered = append(filtered, ord)
				break
			}
		}
	}
	return filtered
}
