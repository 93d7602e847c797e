package docstore

import (
	"time"
)

// Update is a parsed update specification.
type Update struct {
	Set         Document
	Unset       []string
	SetOnInsert Document
}

// ParseUpdate reads $set, $unset and $setOnInsert from an update expression.
// Other operators are ignored. System fields cannot be written through $set
// or $unset; created_at may be seeded through $setOnInsert.
func ParseUpdate(update map[string]any) (Update, error) {
	var u Update
	for key, val := range update {
		switch key {
		case "$set":
			m, ok := asMap(val)
			if !ok {
				continue
			}
			set, err := NormalizeDocument(m)
			if err != nil {
				return Update{}, err
			}
			u.Set = stripSystem(set)
		case "$unset":
			m, ok := asMap(val)
			if !ok {
				continue
			}
			for k := range m {
				if !isSystemField(k) {
					u.Unset = append(u.Unset, k)
				}
			}
		case "$setOnInsert":
			m, ok := asMap(val)
			if !ok {
				continue
			}
			soi, err := NormalizeDocument(m)
			if err != nil {
				return Update{}, err
			}
			delete(soi, FieldID)
			delete(soi, FieldUpdatedAt)
			u.SetOnInsert = soi
		default:
			log.Debugf("ignoring unsupported update operator %s", key)
		}
	}
	return u, nil
}

func isSystemField(k string) bool {
	return k == FieldID || k == FieldCreatedAt || k == FieldUpdatedAt
}

func stripSystem(d Document) Document {
	for k := range d {
		if isSystemField(k) {
			delete(d, k)
		}
	}
	return d
}

// ApplyUpdate computes the next stored value of a document. before is the
// stored document, or an empty (seeded) document when inserting through an
// upsert. before is copied shallowly, so callers pass a document they own.
func ApplyUpdate(before Document, u Update, isInsert bool, now time.Time) Document {
	next := make(Document, len(before)+len(u.Set))
	for k, v := range before {
		next[k] = v
	}
	for k, v := range u.Set {
		next[k] = cloneValue(v)
	}
	for _, k := range u.Unset {
		delete(next, k)
	}
	if isInsert {
		for k, v := range u.SetOnInsert {
			if _, exists := next[k]; !exists {
				next[k] = cloneValue(v)
			}
		}
		if _, ok := next[FieldCreatedAt]; !ok {
			next[FieldCreatedAt] = FormatTime(now)
		}
	}
	stamp := FormatTime(now)
	if prev, ok := before[FieldUpdatedAt].(string); ok && prev > stamp {
		stamp = prev
	}
	next[FieldUpdatedAt] = stamp
	return next
}
