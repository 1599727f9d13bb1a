package services

import "github.com/google/uuid"

// AssignGroups stamps a GroupID onto every resolved row. Rows sharing a
// group key get the same id, minted at the key's first occurrence in file
// order so reruns over the same file are stable within a pass. Rows without
// a key stand alone under a fresh id.
func AssignGroups(rows []ResolvedRow) {
	byKey := make(map[string]uuid.UUID)
	for i := range rows {
		key := rows[i].GroupKey
		if key == "" {
			rows[i].GroupID = uuid.New()
			continue
		}
		id, ok := byKey[key]
		if !ok {
			id = uuid.New()
			byKey[key] = id
		}
		rows[i].GroupID = id
	}
}
