package command

// HelpPageSize is the number of command entries rendered per help page.
const HelpPageSize = 4

type HelpEntry struct {
	Name        string
	Description string
	Usage       string
}

type HelpPage struct {
	Category   string
	Entries    []HelpEntry
	Page       int
	TotalPages int
}

// Help renders one page of a category's command catalog. The page index is
// clamped to the valid range. ok is false for an unknown category.
func (r *Registry) Help(category string, page int) (HelpPage, bool) {
	entries := []HelpEntry{}
	for _, spec := range r.All() {
		if spec.Category != category {
			continue
		}
		entries = append(entries, HelpEntry{
			Name:        spec.Name,
			Description: spec.Description,
			Usage:       spec.Usage,
		})
	}
	if len(entries) == 0 {
		return HelpPage{}, false
	}

	totalPages := (len(entries) + HelpPageSize - 1) / HelpPageSize
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}

	start := page * HelpPageSize
	end := start + HelpPageSize
	if end > len(entries) {
		end = len(entries)
	}

	return HelpPage{
		Category:   category,
		Entries:    entries[start:end],
		Page:       page,
		TotalPages: totalPages,
	}, true
}
