package sheets

import (
	"fmt"
	"strings"

	"klarity/internal/store"
)

const userColumn = "user_id"

// parseRows turns a tab into records. The first row is the header and its
// lowercased cells become field names. Rows are keyed by the "id" column,
// or by their A1 row reference when the tab has none. When the header has
// a user_id column only that user's rows are returned.
func parseRows(tab string, values [][]any, userID string) []store.Record {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])
	for i := range headers {
		headers[i] = strings.ToLower(headers[i])
	}
	idCol := indexOf(headers, "id")
	userCol := indexOf(headers, userColumn)

	var out []store.Record
	for i := 1; i < len(values); i++ {
		row := values[i]
		if blank(row) {
			continue
		}
		if userCol >= 0 && strings.TrimSpace(cell(row, userCol)) != userID {
			continue
		}
		fields := make(map[string]any, len(headers))
		for col, h := range headers {
			if h == "" || col == idCol || col == userCol || col >= len(row) {
				continue
			}
			v := row[col]
			if s, ok := v.(string); ok {
				v = strings.TrimSpace(s)
				if v == "" {
					continue
				}
			}
			fields[h] = v
		}
		key := ""
		if idCol >= 0 {
			key = strings.TrimSpace(cell(row, idCol))
		}
		if key == "" {
			key = fmt.Sprintf("%s!A%d", tab, i+1)
		}
		out = append(out, store.Record{Key: key, Fields: fields})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return fmt.Sprint(row[idx])
}

func blank(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}
