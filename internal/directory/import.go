package directory

import (
	"context"
	"strings"

	"gsm-dashboard/internal/gateway"
)

// ExportHeader is the first line of an exported directory. Import skips the
// first line whatever it contains.
const ExportHeader = "name,phone,email,group"

type ImportResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// ParseRows splits delimited text into candidate records. Fields are split on
// every comma; quoting is not understood, so embedded commas shift columns.
// Rows missing a name or phone are counted as invalid and dropped.
func ParseRows(text string) (rows []gateway.Contact, invalid int) {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, 0
	}
	for _, line := range lines[1:] {
		parts := strings.Split(line, ",")
		field := func(i int) string {
			if i >= len(parts) {
				return ""
			}
			return strings.TrimSpace(parts[i])
		}
		row := gateway.Contact{Name: field(0), Phone: field(1), Email: field(2), Group: field(3)}
		if row.Name == "" || row.Phone == "" {
			invalid++
			continue
		}
		rows = append(rows, row)
	}
	return rows, invalid
}

// Import merges parsed rows whose phone is not already cached, then persists
// once. Nothing is written when every row is a duplicate or invalid.
func (c *Cache) Import(ctx context.Context, text string) (ImportResult, error) {
	rows, invalid := ParseRows(text)
	result := ImportResult{Invalid: invalid}

	err := c.commit(ctx, "import", func(contacts []Contact) ([]Contact, bool, error) {
		known := make(map[string]struct{}, len(contacts)+len(rows))
		for _, contact := range contacts {
			known[contact.Phone] = struct{}{}
		}
		for _, row := range rows {
			if _, ok := known[row.Phone]; ok {
				result.Duplicates++
				continue
			}
			known[row.Phone] = struct{}{}
			contacts = append(contacts, withIDs([]gateway.Contact{row})...)
			result.Accepted++
		}
		return contacts, result.Accepted > 0, nil
	})
	return result, err
}

// Export renders the cache in the import layout, header first.
func (c *Cache) Export() string {
	return ExportText(c.Snapshot())
}

func ExportText(contacts []Contact) string {
	var b strings.Builder
	b.WriteString(ExportHeader)
	b.WriteString("\n")
	for _, contact := range contacts {
		b.WriteString(strings.Join([]string{contact.Name, contact.Phone, contact.Email, contact.Group}, ","))
		b.WriteString("\n")
	}
	return b.String()
}
