package mongo

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// IsDuplicateKeyError reports whether err is a unique index violation.
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// DuplicateKeyField extracts the colliding field name from a duplicate key
// error. Unique indexes are named "<field>_1" by convention, and the server
// reports the index name in the E11000 message. Returns "" when the field
// cannot be determined.
func DuplicateKeyField(err error) string {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return ""
	}

	msg := err.Error()
	const marker = "index: "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}

	name := msg[idx+len(marker):]
	if end := strings.IndexAny(name, " ,}"); end >= 0 {
		name = name[:end]
	}

	// Strip the "_1"/"_-1" direction suffix from the index name.
	if cut := strings.LastIndex(name, "_"); cut > 0 {
		name = name[:cut]
	}

	return name
}
